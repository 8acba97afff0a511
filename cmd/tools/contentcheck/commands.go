package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/mood-fortune/backend/internal/library"
	"github.com/zhouzirui/mood-fortune/backend/internal/model/content"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/feed"
	"github.com/zhouzirui/mood-fortune/backend/internal/service/selection"
)

var errInvalidContent = errors.New("content validation failed")

type options struct {
	dir string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "contentcheck",
		Short:        "Validate and sample the mood content libraries",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.dir, "dir", "", "directory of library YAML files (default: embedded libraries)")

	root.AddCommand(newValidateCmd(opts), newSampleCmd(opts))
	return root
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [library...]",
		Short: "Report empty buckets and incomplete messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			libs, err := loadLibraries(opts.dir)
			if err != nil {
				return err
			}
			return runValidate(cmd.OutOrStdout(), libs, args)
		},
	}
}

func newSampleCmd(opts *options) *cobra.Command {
	var (
		libName string
		mood    string
		ctxName string
		count   int
		shuffle bool
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Resolve a feed for one mood and context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			libs, err := loadLibraries(opts.dir)
			if err != nil {
				return err
			}
			lib, ok := library.NewRegistry(libs...).FindByName(libName)
			if !ok {
				return fmt.Errorf("library %q not found", libName)
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			q := feed.Query{Mood: content.Mood(mood), Context: content.Context(ctxName), Count: count, Shuffle: shuffle}
			return runSample(cmd.OutOrStdout(), lib, q, rand.New(rand.NewSource(seed)))
		},
	}

	cmd.Flags().StringVar(&libName, "library", "fortune", "library name")
	cmd.Flags().StringVar(&mood, "mood", "", "mood")
	cmd.Flags().StringVar(&ctxName, "context", "", "context")
	cmd.Flags().IntVar(&count, "count", 3, "number of messages")
	cmd.Flags().BoolVar(&shuffle, "shuffle", true, "random order instead of library order")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time based)")
	_ = cmd.MarkFlagRequired("mood")
	_ = cmd.MarkFlagRequired("context")
	return cmd
}

func loadLibraries(dir string) ([]*library.Library, error) {
	if dir == "" {
		return library.LoadEmbedded()
	}
	return library.LoadDir(os.DirFS(dir), ".")
}

func runValidate(w io.Writer, libs []*library.Library, only []string) error {
	wanted := make(map[string]bool, len(only))
	for _, name := range only {
		wanted[name] = true
	}

	failed := false
	checked := 0
	for _, lib := range libs {
		if len(wanted) > 0 && !wanted[lib.Name()] {
			continue
		}
		checked++

		result := lib.Validate()
		if result.IsValid {
			fmt.Fprintf(w, "ok   %s (%d messages)\n", lib.Name(), lib.Size())
			continue
		}
		failed = true
		fmt.Fprintf(w, "FAIL %s (%d problems)\n", lib.Name(), len(result.Errors))
		for _, msg := range result.Errors {
			fmt.Fprintf(w, "     %s\n", msg)
		}
	}

	if checked == 0 {
		return fmt.Errorf("no matching libraries for %v", only)
	}
	if failed {
		return errInvalidContent
	}
	return nil
}

func runSample(w io.Writer, lib *library.Library, q feed.Query, rnd selection.RandSource) error {
	result := feed.New(selection.NewEngine(lib, rnd)).Resolve(q)
	if result.Error != "" {
		return errors.New(result.Error)
	}
	if len(result.AllMessages) == 0 {
		fmt.Fprintf(w, "%s: %s/%s has no messages\n", lib.Name(), q.Mood, q.Context)
		return nil
	}

	fmt.Fprintf(w, "%s: %s/%s, %d of %d\n", lib.Name(), q.Mood, q.Context, len(result.Messages), len(result.AllMessages))
	for i, msg := range result.Messages {
		fmt.Fprintf(w, "%2d. [%s #%d %ds] %s\n", i+1, msg.ActionType, msg.AudioIndex, msg.DisplayTime, msg.Selected().SpokenText())
	}
	return nil
}
