package handouts

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeReferenceDirs builds a pdfs/ and protocols/ pair under a temp root.
func writeReferenceDirs(t *testing.T, pdfs map[string][]byte, protocols map[string]string) (string, string) {
	t.Helper()
	root := t.TempDir()
	pdfDir := filepath.Join(root, "pdfs")
	protoDir := filepath.Join(root, "protocols")
	if err := os.MkdirAll(pdfDir, 0755); err != nil {
		t.Fatalf("mkdir pdfs: %v", err)
	}
	if err := os.MkdirAll(protoDir, 0755); err != nil {
		t.Fatalf("mkdir protocols: %v", err)
	}
	for name, data := range pdfs {
		if err := os.WriteFile(filepath.Join(pdfDir, name), data, 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	for name, content := range protocols {
		if err := os.WriteFile(filepath.Join(protoDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return pdfDir, protoDir
}

func TestLoad_Bundle(t *testing.T) {
	pdfDir, protoDir := writeReferenceDirs(t,
		map[string][]byte{
			"knee_replacement.pdf": []byte("%PDF-1.4 knee"),
			"acl_repair.pdf":       []byte("%PDF-1.4 acl"),
		},
		map[string]string{
			"pain_management.txt": "Take medication as prescribed.",
			"dvt_prevention.txt":  "Walk every two hours while awake.",
		},
	)

	bundle, err := Load(context.Background(), pdfDir, protoDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if bundle.DocumentCount() != 2 {
		t.Errorf("Expected 2 documents, got %d", bundle.DocumentCount())
	}
	if bundle.ProtocolCount() != 2 {
		t.Errorf("Expected 2 protocols, got %d", bundle.ProtocolCount())
	}
	if len(bundle.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", bundle.Warnings)
	}
	if bundle.Empty() {
		t.Error("Bundle should not be empty")
	}

	// Documents ordered by filename
	if bundle.Documents[0].Filename != "acl_repair.pdf" || bundle.Documents[1].Filename != "knee_replacement.pdf" {
		t.Errorf("Documents not ordered by filename: %s, %s",
			bundle.Documents[0].Filename, bundle.Documents[1].Filename)
	}

	// Data round-trips through base64
	raw, err := base64.StdEncoding.DecodeString(bundle.Documents[0].Data)
	if err != nil {
		t.Fatalf("document data is not valid base64: %v", err)
	}
	if string(raw) != "%PDF-1.4 acl" {
		t.Errorf("Unexpected document bytes: %q", raw)
	}
	if bundle.Documents[0].Size != len(raw) {
		t.Errorf("Size mismatch: %d vs %d", bundle.Documents[0].Size, len(raw))
	}

	// Protocols concatenated in filename order with headers
	wantProtocols := ProtocolHeader("dvt_prevention.txt") + "Walk every two hours while awake." +
		ProtocolHeader("pain_management.txt") + "Take medication as prescribed."
	if diff := cmp.Diff(wantProtocols, bundle.Protocols); diff != "" {
		t.Errorf("Protocol text mismatch (-want +got):\n%s", diff)
	}
	wantFiles := []string{"dvt_prevention.txt", "pain_management.txt"}
	if diff := cmp.Diff(wantFiles, bundle.ProtocolFiles); diff != "" {
		t.Errorf("Protocol files mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Deterministic(t *testing.T) {
	pdfs := map[string][]byte{}
	for i := 0; i < 8; i++ {
		pdfs[fmt.Sprintf("handout_%02d.pdf", i)] = []byte(fmt.Sprintf("%%PDF-1.4 body %d", i))
	}
	pdfDir, protoDir := writeReferenceDirs(t, pdfs, map[string]string{
		"a.txt": "alpha",
		"b.txt": "bravo",
		"c.txt": "charlie",
	})

	first, err := Load(context.Background(), pdfDir, protoDir)
	if err != nil {
		t.Fatalf("first Load: %v", err)
	}
	second, err := Load(context.Background(), pdfDir, protoDir)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Loads of identical directories differ (-first +second):\n%s", diff)
	}
}

func TestLoad_MissingDirectories(t *testing.T) {
	root := t.TempDir()

	bundle, err := Load(context.Background(),
		filepath.Join(root, "no-pdfs"),
		filepath.Join(root, "no-protocols"))
	if err != nil {
		t.Fatalf("Load should soften missing directories, got: %v", err)
	}

	if !bundle.Empty() {
		t.Error("Expected empty bundle")
	}
	if bundle.DocumentCount() != 0 || bundle.ProtocolCount() != 0 {
		t.Errorf("Expected zero counts, got %d/%d", bundle.DocumentCount(), bundle.ProtocolCount())
	}
	// The handouts directory warns; the protocols directory is optional
	// supplementary material and stays silent.
	if len(bundle.Warnings) != 1 {
		t.Fatalf("Expected only the handouts warning, got %v", bundle.Warnings)
	}
	if !strings.Contains(bundle.Warnings[0], "handouts directory") {
		t.Errorf("Unexpected warning: %q", bundle.Warnings[0])
	}
}

func TestLoad_EmptyHandoutsDirWarns(t *testing.T) {
	// An existing handouts directory with no PDFs warns; an empty
	// protocols directory stays silent.
	pdfDir, protoDir := writeReferenceDirs(t, nil, nil)

	bundle, err := Load(context.Background(), pdfDir, protoDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !bundle.Empty() {
		t.Error("Expected empty bundle")
	}
	if len(bundle.Warnings) != 1 {
		t.Fatalf("Expected exactly the no-handouts warning, got %v", bundle.Warnings)
	}
	if !strings.Contains(bundle.Warnings[0], "no handout PDFs") {
		t.Errorf("Unexpected warning: %q", bundle.Warnings[0])
	}
}

func TestLoad_IgnoresOtherFiles(t *testing.T) {
	pdfDir, protoDir := writeReferenceDirs(t,
		map[string][]byte{"real.pdf": []byte("%PDF-1.4")},
		map[string]string{"real.txt": "content"},
	)
	// Files with the wrong extension are skipped
	if err := os.WriteFile(filepath.Join(pdfDir, "notes.md"), []byte("notes"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(protoDir, "image.png"), []byte{0x89}, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Subdirectories are skipped even with a matching name
	if err := os.MkdirAll(filepath.Join(pdfDir, "archive.pdf"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	bundle, err := Load(context.Background(), pdfDir, protoDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if bundle.DocumentCount() != 1 {
		t.Errorf("Expected 1 document, got %d", bundle.DocumentCount())
	}
	if bundle.ProtocolCount() != 1 {
		t.Errorf("Expected 1 protocol, got %d", bundle.ProtocolCount())
	}
}

func TestLoad_ExtensionCaseInsensitive(t *testing.T) {
	pdfDir, protoDir := writeReferenceDirs(t,
		map[string][]byte{"SHOULDER.PDF": []byte("%PDF-1.4 shoulder")},
		map[string]string{"ICE.TXT": "Ice for 20 minutes."},
	)

	bundle, err := Load(context.Background(), pdfDir, protoDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if bundle.DocumentCount() != 1 {
		t.Errorf("Expected SHOULDER.PDF to load, got %d documents", bundle.DocumentCount())
	}
	if bundle.ProtocolCount() != 1 {
		t.Errorf("Expected ICE.TXT to load, got %d protocols", bundle.ProtocolCount())
	}
}

func TestLoad_UnreadableFileBecomesWarning(t *testing.T) {
	pdfDir, protoDir := writeReferenceDirs(t,
		map[string][]byte{"good.pdf": []byte("%PDF-1.4 good")},
		map[string]string{"good.txt": "fine"},
	)

	// A dangling symlink reads as a per-file failure
	if err := os.Symlink(filepath.Join(pdfDir, "missing-target"), filepath.Join(pdfDir, "broken.pdf")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if err := os.Symlink(filepath.Join(protoDir, "missing-target"), filepath.Join(protoDir, "broken.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	bundle, err := Load(context.Background(), pdfDir, protoDir)
	if err != nil {
		t.Fatalf("Load should soften unreadable files, got: %v", err)
	}

	if bundle.DocumentCount() != 1 {
		t.Errorf("Expected the good handout only, got %d", bundle.DocumentCount())
	}
	if bundle.ProtocolCount() != 1 {
		t.Errorf("Expected the good protocol only, got %d", bundle.ProtocolCount())
	}
	if len(bundle.Warnings) != 2 {
		t.Errorf("Expected 2 warnings, got %v", bundle.Warnings)
	}
	if strings.Contains(bundle.Protocols, "broken.txt") {
		t.Error("Failed protocol should not appear in the concatenated text")
	}
}

func TestLoad_ProtocolCountIgnoresContentMarkers(t *testing.T) {
	// A protocol whose body contains separator-like text must not
	// inflate the file count.
	_, protoDir := writeReferenceDirs(t, nil, map[string]string{
		"tricky.txt": "Step 1 === rest === then elevate.\n=== more ===",
	})

	bundle, err := Load(context.Background(), filepath.Join(t.TempDir(), "none"), protoDir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if bundle.ProtocolCount() != 1 {
		t.Errorf("Expected 1 protocol file, got %d", bundle.ProtocolCount())
	}
}

func TestProtocolHeader(t *testing.T) {
	got := ProtocolHeader("wound_care.txt")
	want := "\n\n=== wound_care.txt ===\n\n"
	if got != want {
		t.Errorf("ProtocolHeader = %q, want %q", got, want)
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	pdfDir, protoDir := writeReferenceDirs(t,
		map[string][]byte{"a.pdf": []byte("%PDF-1.4")},
		map[string]string{"a.txt": "text"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Load(ctx, pdfDir, protoDir); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
