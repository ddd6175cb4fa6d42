package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/schollz/progressbar/v3"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v2"

	"github.com/hazyhaar/marque"
)

// Microseconds between the Chrome timestamp epoch (1601-01-01) and the Unix
// epoch.
const webkitEpochOffsetMicro = 11_644_473_600_000_000

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "import a Chrome/Chromium bookmark export (Bookmarks JSON)",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "batch-size", Usage: "records per transaction (0 = automatic)"},
			&cli.BoolFlag{Name: "replace", Usage: "clear the existing corpus first"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return cli.Exit("missing file argument", 1)
			}
			data, err := os.ReadFile(c.Args().Get(0))
			if err != nil {
				return err
			}
			roots := gjson.GetBytes(data, "roots")
			if !roots.Exists() {
				return fmt.Errorf("no bookmark roots in %s", c.Args().Get(0))
			}

			records := flattenRoots(roots)
			if len(records) == 0 {
				return fmt.Errorf("export contains no bookmarks")
			}

			eng, err := openEngine(c)
			if err != nil {
				return err
			}
			defer eng.Close()

			if c.Bool("replace") {
				if err := eng.ClearAll(c.Context); err != nil {
					return err
				}
			}

			bar := progressbar.Default(int64(len(records)), "importing")
			var failed int
			sum, err := eng.InsertMany(c.Context, records, marque.BatchOptions{
				BatchSize: c.Int("batch-size"),
				OnProgress: func(processed, total int) {
					bar.Set(processed)
				},
				OnError: func(id string, err error) {
					failed++
					fmt.Fprintf(os.Stderr, "\nrecord %s: %v\n", id, err)
				},
			})
			bar.Finish()
			if err != nil {
				return err
			}

			fmt.Printf("imported %d records (%d failed)\n", sum.Processed-sum.Failed, sum.Failed)
			return nil
		},
	}
}

// flattenRoots walks every named root of a Chrome export and returns the
// hierarchy-annotated records, folders included. Depth 1 is a root folder.
func flattenRoots(roots gjson.Result) []*marque.Bookmark {
	var records []*marque.Bookmark
	roots.ForEach(func(_, node gjson.Result) bool {
		if node.Get("type").String() == "folder" {
			records = append(records, flattenFolder(node, "", nil, nil, 0)...)
		}
		return true
	})
	return records
}

// flattenFolder emits the folder record followed by its annotated subtree.
// path and pathIDs name the ancestors, root first; orderIndex is the
// folder's position among its siblings.
func flattenFolder(node gjson.Result, parentID string, path, pathIDs []string, orderIndex int) []*marque.Bookmark {
	folder := recordFromNode(node, parentID, path, pathIDs, orderIndex)
	folder.IsFolder = true

	childPath := append(append([]string{}, path...), folder.Title)
	childPathIDs := append(append([]string{}, pathIDs...), folder.ID)

	children := node.Get("children").Array()
	records := []*marque.Bookmark{folder}
	var siblingIDs []string
	var direct []*marque.Bookmark

	for i, child := range children {
		switch child.Get("type").String() {
		case "folder":
			sub := flattenFolder(child, folder.ID, childPath, childPathIDs, i)
			records = append(records, sub...)
			direct = append(direct, sub[0])
			folder.BookmarkCount += sub[0].BookmarkCount
		case "url":
			b := recordFromNode(child, folder.ID, childPath, childPathIDs, i)
			b.URL = child.Get("url").String()
			records = append(records, b)
			direct = append(direct, b)
			folder.BookmarkCount++
		}
	}

	folder.ChildrenCount = len(direct)
	for _, child := range direct {
		siblingIDs = append(siblingIDs, child.ID)
	}
	for _, child := range direct {
		child.SiblingIDs = siblingIDs
	}
	return records
}

func recordFromNode(node gjson.Result, parentID string, path, pathIDs []string, orderIndex int) *marque.Bookmark {
	id := node.Get("guid").String()
	if id == "" {
		id = node.Get("id").String()
	}
	return &marque.Bookmark{
		ID:          id,
		ParentID:    parentID,
		Title:       node.Get("name").String(),
		DateAdded:   webkitToUnixMilli(node.Get("date_added").String()),
		OrderIndex:  orderIndex,
		Path:        path,
		PathIDs:     pathIDs,
		Depth:       len(pathIDs) + 1,
		AncestorIDs: pathIDs,
	}
}

// webkitToUnixMilli converts Chrome's microseconds-since-1601 string
// timestamps to unix milliseconds. Zero or unparseable input yields 0.
func webkitToUnixMilli(s string) int64 {
	micro, err := strconv.ParseInt(s, 10, 64)
	if err != nil || micro == 0 {
		return 0
	}
	return (micro - webkitEpochOffsetMicro) / 1000
}
