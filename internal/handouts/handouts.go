// Package handouts performs the one-time load of clinical reference
// material: patient handout PDFs and plain-text protocol files. The
// loaded bundle is immutable and shared across the whole session.
package handouts

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"postop/internal/logging"
)

// Document is a single patient handout PDF, base64-encoded for the
// Messages API.
type Document struct {
	Filename string
	Data     string // base64-encoded PDF bytes
	Size     int    // raw size in bytes
}

// Bundle holds all reference material loaded at startup.
type Bundle struct {
	// Documents, ordered by filename
	Documents []Document

	// Protocols is the concatenated protocol text, each file introduced
	// by its header line
	Protocols string

	// ProtocolFiles lists the protocol filenames that loaded, ordered
	// by filename
	ProtocolFiles []string

	// Warnings collects per-file load failures; they never abort the load
	Warnings []string
}

// DocumentCount returns the number of handout PDFs that loaded.
// A nil bundle counts as zero.
func (b *Bundle) DocumentCount() int {
	if b == nil {
		return 0
	}
	return len(b.Documents)
}

// ProtocolCount returns the number of protocol files that loaded.
// A nil bundle counts as zero.
func (b *Bundle) ProtocolCount() int {
	if b == nil {
		return 0
	}
	return len(b.ProtocolFiles)
}

// Empty reports whether no reference material loaded at all.
func (b *Bundle) Empty() bool {
	return b == nil || (len(b.Documents) == 0 && b.Protocols == "")
}

// ProtocolHeader returns the header line that introduces a protocol
// file inside the concatenated protocol text.
func ProtocolHeader(filename string) string {
	return fmt.Sprintf("\n\n=== %s ===\n\n", filename)
}

// Load reads both reference directories and assembles the bundle.
// Missing directories and unreadable files degrade to warnings so the
// assistant can still run with partial or no reference material.
func Load(ctx context.Context, handoutsDir, protocolsDir string) (*Bundle, error) {
	timer := logging.StartTimer(logging.CategoryContent, "reference load")
	defer timer.StopWithInfo()

	bundle := &Bundle{}

	var mu sync.Mutex
	addWarning := func(w string) {
		mu.Lock()
		bundle.Warnings = append(bundle.Warnings, w)
		mu.Unlock()
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		docs, err := loadDocuments(egCtx, handoutsDir, addWarning)
		if err != nil {
			return err
		}
		bundle.Documents = docs
		return nil
	})

	eg.Go(func() error {
		text, files, err := loadProtocols(egCtx, protocolsDir, addWarning)
		if err != nil {
			return err
		}
		bundle.Protocols = text
		bundle.ProtocolFiles = files
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(bundle.Warnings)

	logging.Content("loaded %d handouts, %d protocols, %d warnings",
		bundle.DocumentCount(), bundle.ProtocolCount(), len(bundle.Warnings))

	return bundle, nil
}

// loadDocuments reads every *.pdf in dir, ordered by filename.
func loadDocuments(ctx context.Context, dir string, addWarning func(string)) ([]Document, error) {
	names, err := listFiles(dir, ".pdf")
	if err != nil {
		addWarning(fmt.Sprintf("handouts directory %s: %v", dir, err))
		return nil, nil
	}
	if len(names) == 0 {
		addWarning(fmt.Sprintf("no handout PDFs found in %s", dir))
		return nil, nil
	}

	// Read concurrently but keep filename order by slotting results
	// into place by index.
	docs := make([]Document, len(names))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, name := range names {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				addWarning(fmt.Sprintf("handout %s: %v", name, err))
				return nil
			}
			docs[i] = Document{
				Filename: name,
				Data:     base64.StdEncoding.EncodeToString(data),
				Size:     len(data),
			}
			logging.ContentDebug("loaded handout %s (%d bytes)", name, len(data))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// Drop slots left empty by failed reads
	loaded := docs[:0]
	for _, d := range docs {
		if d.Filename != "" {
			loaded = append(loaded, d)
		}
	}
	return loaded, nil
}

// loadProtocols reads every *.txt in dir, ordered by filename, and
// concatenates the contents under per-file headers. Protocols are
// optional supplementary material: a missing or empty directory yields
// an empty string with no warning.
func loadProtocols(ctx context.Context, dir string, addWarning func(string)) (string, []string, error) {
	names, err := listFiles(dir, ".txt")
	if err != nil {
		return "", nil, nil
	}

	var sb strings.Builder
	var loaded []string
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			addWarning(fmt.Sprintf("protocol %s: %v", name, err))
			continue
		}
		sb.WriteString(ProtocolHeader(name))
		sb.Write(data)
		loaded = append(loaded, name)
		logging.ContentDebug("loaded protocol %s (%d bytes)", name, len(data))
	}
	return sb.String(), loaded, nil
}

// listFiles returns the filenames in dir with the given extension
// (case-insensitive), sorted. A missing directory is reported as an
// error for the caller to soften.
func listFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ext) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}
