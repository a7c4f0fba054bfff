// Package scanner walks directory trees and fans files out to concurrent
// extraction and validation workers.
package scanner

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"sqlguard/internal/model"
)

// FileWalker traverses directories and feeds matching files to a channel.
type FileWalker struct {
	extensions map[string]struct{}
	excludes   []string
}

func NewFileWalker(exts []string, excludes []string) *FileWalker {
	e := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		e[strings.ToLower(ext)] = struct{}{}
	}
	return &FileWalker{extensions: e, excludes: excludes}
}

// Walk starts the traversal in its own goroutine and returns a channel of
// file paths plus a single-shot error channel. Both close when the walk ends.
func (fw *FileWalker) Walk(ctx context.Context, root string) (<-chan string, <-chan error) {
	paths := make(chan string, 100)
	errs := make(chan error, 1)

	go func() {
		defer close(paths)
		defer close(errs)

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if d.IsDir() {
				for _, exclude := range fw.excludes {
					if strings.Contains(path, exclude) {
						return filepath.SkipDir
					}
				}
				if strings.HasPrefix(d.Name(), ".") && d.Name() != "." {
					return filepath.SkipDir
				}
				return nil
			}

			for _, exclude := range fw.excludes {
				matched, _ := filepath.Match(exclude, d.Name())
				if matched || strings.Contains(path, exclude) {
					return nil
				}
			}

			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
			if _, ok := fw.extensions[ext]; !ok {
				return nil
			}
			select {
			case paths <- path:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil {
			errs <- err
		}
	}()

	return paths, errs
}

// FileResult carries everything produced for one file.
type FileResult struct {
	File     string
	Findings []model.Finding
	Err      error
}

// Processor turns one file path into validation findings.
type Processor func(path string) ([]model.Finding, error)

// Pool validates files concurrently.
type Pool struct {
	workers   int
	processor Processor
}

func NewPool(workers int, proc Processor) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers, processor: proc}
}

// Run drains the path channel with the configured number of workers and
// streams per-file results. Extraction errors are reported as results, not
// as pool failures, so one unreadable file never aborts the scan.
func (p *Pool) Run(ctx context.Context, paths <-chan string) <-chan FileResult {
	results := make(chan FileResult)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for path := range paths {
				findings, err := p.processor(path)
				select {
				case results <- FileResult{File: path, Findings: findings, Err: err}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(results)
	}()

	return results
}
