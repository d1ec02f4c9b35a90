package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/picsweep/pkg/picsweep/catalog"
	"github.com/jamesainslie/picsweep/pkg/picsweep/imageinfo"
	"github.com/jamesainslie/picsweep/pkg/picsweep/output"
	"github.com/jamesainslie/picsweep/pkg/picsweep/pattern"
)

var scanCmd = &cobra.Command{
	Use:   "scan [folder]",
	Short: "List the images a review would show",
	Long: `Scan a folder and print one line per image, with the size variants of
each picture collapsed into the largest copy.

Output formats: pretty (default), plain, json, jsonl, yaml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

var (
	scanOutput string
	scanDims   bool
	scanGroups bool
)

func init() {
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "pretty", "output format")
	scanCmd.Flags().BoolVar(&scanDims, "dims", false, "read image dimensions")
	scanCmd.Flags().BoolVar(&scanGroups, "groups", false, "list the variants of each picture")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	folder, err := resolveFolder(args, appConfig.DefaultPath, ".")
	if err != nil {
		return err
	}

	formatter, err := output.Get(scanOutput)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	cat := catalog.New()
	res, err := cat.Load(ctx, folder)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	result := buildScanResult(cat, res, scanDims, scanGroups)
	result.Duration = time.Since(start)
	printVerbose("scanned %s: %d images, %d groups in %v", result.Folder, len(result.Items), result.Groups, result.Duration)

	if err := formatter.Format(cmd.OutOrStdout(), result); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}

// buildScanResult converts a loaded catalog into an output listing.
func buildScanResult(cat *catalog.Catalog, res catalog.LoadResult, dims, groups bool) *output.Result {
	items := cat.All()
	result := &output.Result{
		Folder:  cat.Dir(),
		Items:   make([]output.Item, 0, len(items)),
		Groups:  cat.Groups(),
		Skipped: res.Skipped,
	}

	for _, item := range items {
		it := output.Item{
			Path:      item.Path,
			Name:      item.Filename,
			Size:      item.Size,
			SizeHuman: item.HumanSize(),
		}

		m := pattern.Classify(item.Filename)
		if g, ok := cat.Group(m.Key); m.Grouped && ok && g.Has(item.Path) {
			it.Group = string(m.Key)
			if groups {
				it.Variants = variants(g)
			}
		}

		if dims {
			info, err := imageinfo.Probe(item.Path)
			if err != nil {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", item.Filename, err))
			} else {
				it.Format, it.Width, it.Height = info.Format, info.Width, info.Height
			}
		}

		result.Items = append(result.Items, it)
	}

	return result
}

func variants(g *catalog.GroupRecord) []output.Variant {
	survivor, _ := g.Survivor()
	out := make([]output.Variant, 0, len(g.Variants))
	for _, tag := range pattern.Tags {
		v, ok := g.Variants[tag]
		if !ok {
			continue
		}
		out = append(out, output.Variant{
			Path:      v.Path,
			Tag:       string(tag),
			Size:      v.Size,
			SizeHuman: v.HumanSize(),
			Survivor:  v.Path == survivor.Path,
		})
	}
	return out
}
