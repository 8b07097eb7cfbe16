package repl

import (
	"bytes"
	"context"
	"fmt"
	stdimage "image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/manash/cyberedit/internal/image"
	"github.com/manash/cyberedit/internal/provider"
	"github.com/manash/cyberedit/internal/session"
	"github.com/manash/cyberedit/internal/store"
	"github.com/manash/cyberedit/pkg/models"
)

type mockEditor struct {
	editFunc func(ctx context.Context, req *models.EditRequest) (*models.Response, error)
	requests []*models.EditRequest
}

func (m *mockEditor) Name() models.ProviderType {
	return models.ProviderGemini
}

func (m *mockEditor) SupportsModel(_ string) bool {
	return true
}

func (m *mockEditor) Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error) {
	m.requests = append(m.requests, req)
	if m.editFunc != nil {
		return m.editFunc(ctx, req)
	}
	return &models.Response{Image: pngImage(nil, color.RGBA{B: 0xff, A: 0xff})}, nil
}

func pngImage(t *testing.T, c color.RGBA) models.Image {
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		if t != nil {
			t.Fatalf("png.Encode() error = %v", err)
		}
		panic(err)
	}
	return models.Image{Data: buf.Bytes(), MIMEType: "image/png"}
}

func writePhoto(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, pngImage(t, color.RGBA{R: 0xff, A: 0xff}).Data, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

type testEnv struct {
	repl   *REPL
	out    *bytes.Buffer
	errOut *bytes.Buffer
	mgr    *session.Manager
	kv     *store.Memory
	editor *mockEditor
	outDir string
}

func testREPL(t *testing.T, input string) *testEnv {
	t.Helper()
	kv := store.NewMemory()
	editor := &mockEditor{}

	n := 0
	mgr, err := session.Load(context.Background(), kv, session.Options{
		Editor:       editor,
		TrialLimit:   2,
		LicenseDelay: -1,
		Now:          func() time.Time { return time.Now().Add(-time.Hour) },
		NewID: func() string {
			n++
			return fmt.Sprintf("rec-%d", n)
		},
	})
	if err != nil {
		t.Fatalf("session.Load() error = %v", err)
	}
	t.Cleanup(mgr.Close)

	outDir := t.TempDir()
	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}

	r := New(&Config{
		In:         strings.NewReader(input),
		Out:        out,
		Err:        errBuf,
		SessionMgr: mgr,
		Saver:      image.NewSaver().InDir(outDir),
	})

	return &testEnv{repl: r, out: out, errOut: errBuf, mgr: mgr, kv: kv, editor: editor, outDir: outDir}
}

func (e *testEnv) run(t *testing.T) {
	t.Helper()
	if err := e.repl.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
}

func TestNew(t *testing.T) {
	env := testREPL(t, "")

	if env.repl == nil {
		t.Fatal("New() returned nil")
	}
	if len(env.repl.commands) == 0 {
		t.Error("New() commands not registered")
	}
	if env.repl.mode != models.PromptSingle {
		t.Errorf("New() mode = %s, want single", env.repl.mode)
	}
}

func TestREPL_CommandsRegistered(t *testing.T) {
	env := testREPL(t, "")

	expectedCommands := []string{
		"upload", "open", "o",
		"mode", "m",
		"quality", "res",
		"generate", "gen", "g",
		"history", "h", "hist",
		"delete", "rm", "del",
		"clear",
		"license", "activate",
		"compare", "cmp", "show",
		"locale", "lang",
		"status", "st",
		"help", "?",
		"quit", "exit", "q",
	}

	for _, cmd := range expectedCommands {
		if _, ok := env.repl.commands[cmd]; !ok {
			t.Errorf("Command %q not registered", cmd)
		}
	}
}

func TestREPL_Run_Quit(t *testing.T) {
	env := testREPL(t, "quit\n")
	env.run(t)

	if !strings.Contains(env.out.String(), "Goodbye!") {
		t.Error("Run() quit command did not output 'Goodbye!'")
	}
}

func TestREPL_Run_Help(t *testing.T) {
	env := testREPL(t, "help\nquit\n")
	env.run(t)

	output := env.out.String()
	if !strings.Contains(output, "Available commands") {
		t.Error("Run() help did not show available commands")
	}
	for _, name := range []string{"upload", "generate", "license", "compare"} {
		if !strings.Contains(output, name) {
			t.Errorf("Run() help did not list %s command", name)
		}
	}
}

func TestREPL_Run_UnknownCommand(t *testing.T) {
	env := testREPL(t, "unknowncommand\nquit\n")
	env.run(t)

	if !strings.Contains(env.errOut.String(), "unknown command") {
		t.Errorf("stderr = %q, want unknown command error", env.errOut.String())
	}
}

func TestREPL_Run_EmptyLine(t *testing.T) {
	env := testREPL(t, "\n\n\nquit\n")
	env.run(t)
}

func TestREPL_Stop(t *testing.T) {
	env := testREPL(t, "")

	env.repl.running = true
	env.repl.Stop()

	if env.repl.running {
		t.Error("Stop() did not stop the REPL")
	}
}

func TestREPL_PromptShowsTrialBadge(t *testing.T) {
	env := testREPL(t, "quit\n")
	env.run(t)

	if !strings.Contains(env.out.String(), "cyberedit [single|4K|2]> ") {
		t.Errorf("prompt not shown, output = %q", env.out.String())
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple command",
			input: "generate hello",
			want:  []string{"generate", "hello"},
		},
		{
			name:  "double quotes",
			input: `generate "hello world"`,
			want:  []string{"generate", "hello world"},
		},
		{
			name:  "single quotes",
			input: `upload '/tmp/my photo.png'`,
			want:  []string{"upload", "/tmp/my photo.png"},
		},
		{
			name:  "multiple arguments",
			input: "compare rec-1 30 out.png",
			want:  []string{"compare", "rec-1", "30", "out.png"},
		},
		{
			name:  "nested quote kept",
			input: `generate "it's neon"`,
			want:  []string{"generate", "it's neon"},
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  nil,
		},
		{
			name:  "multiple spaces",
			input: "generate    test    prompt",
			want:  []string{"generate", "test", "prompt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCommand(tt.input)
			if len(got) != len(tt.want) {
				t.Errorf("parseCommand() = %v, want %v", got, tt.want)
				return
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseCommand()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short string", "hello", 10, "hello"},
		{"exact length", "hello", 5, "hello"},
		{"needs truncation", "hello world", 8, "hello..."},
		{"newlines flattened", "a\nb", 10, "a b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUploadCommand(t *testing.T) {
	photo := writePhoto(t)
	env := testREPL(t, fmt.Sprintf("upload %q\nquit\n", photo))
	env.run(t)

	if env.repl.upload.IsEmpty() {
		t.Fatal("upload did not load the image")
	}
	if env.repl.upload.MIMEType != "image/png" {
		t.Errorf("MIMEType = %s, want image/png", env.repl.upload.MIMEType)
	}
	if !strings.Contains(env.out.String(), "Loaded") {
		t.Error("upload did not confirm")
	}
}

func TestUploadCommand_NotImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0644); err != nil {
		t.Fatal(err)
	}
	env := testREPL(t, fmt.Sprintf("upload %q\nquit\n", path))
	env.run(t)

	if !env.repl.upload.IsEmpty() {
		t.Error("non-image was accepted")
	}
	if env.errOut.Len() == 0 {
		t.Error("expected an error for a non-image upload")
	}
}

func TestModeCommand(t *testing.T) {
	env := testREPL(t, "mode batch\nmode\nmode sideways\nquit\n")
	env.run(t)

	if env.repl.mode != models.PromptBatch {
		t.Errorf("mode = %s, want batch", env.repl.mode)
	}
	if !strings.Contains(env.out.String(), "Batch Prompt") {
		t.Error("mode did not show the batch label")
	}
	if !strings.Contains(env.errOut.String(), "invalid prompt mode") {
		t.Errorf("stderr = %q, want invalid mode error", env.errOut.String())
	}
}

func TestQualityCommand(t *testing.T) {
	env := testREPL(t, "quality\nquality hd\nquality 16k\nquit\n")
	env.run(t)

	if got := env.mgr.Snapshot().Quality; got != models.QualityHD {
		t.Errorf("quality = %s, want 2K", got)
	}
	output := env.out.String()
	if !strings.Contains(output, "* 4K") {
		t.Error("quality list did not mark the current tier")
	}
	if !strings.Contains(output, "Quality set to: HD (2K)") {
		t.Error("quality did not confirm")
	}
	if env.errOut.Len() == 0 {
		t.Error("expected an error for an unknown tier")
	}
}

func TestGenerateCommand_NoUpload(t *testing.T) {
	env := testREPL(t, "generate neon city\nquit\n")
	env.run(t)

	if !strings.Contains(env.errOut.String(), "No image uploaded.") {
		t.Errorf("stderr = %q, want no image error", env.errOut.String())
	}
	if len(env.editor.requests) != 0 {
		t.Error("editor called without an upload")
	}
}

func TestGenerateCommand_BlankPrompt(t *testing.T) {
	photo := writePhoto(t)
	env := testREPL(t, fmt.Sprintf("upload %q\ngenerate\nquit\n", photo))
	env.run(t)

	if !strings.Contains(env.errOut.String(), "Please upload an image and enter a prompt.") {
		t.Errorf("stderr = %q, want missing input error", env.errOut.String())
	}
	if len(env.editor.requests) != 0 {
		t.Error("editor called with a blank prompt")
	}
}

func TestGenerateCommand_Single(t *testing.T) {
	photo := writePhoto(t)
	env := testREPL(t, fmt.Sprintf("upload %q\ngenerate neon city\nquit\n", photo))
	env.run(t)

	if len(env.editor.requests) != 1 {
		t.Fatalf("editor called %d times, want 1", len(env.editor.requests))
	}
	if !strings.Contains(env.editor.requests[0].Instruction, "neon city") {
		t.Errorf("instruction = %q", env.editor.requests[0].Instruction)
	}

	saved := filepath.Join(env.outDir, "cyberedit-1-neon-city.png")
	if _, err := os.Stat(saved); err != nil {
		t.Errorf("generated image not saved: %v", err)
	}

	output := env.out.String()
	if !strings.Contains(output, "Free trial uses remaining: 1") {
		t.Errorf("trial counter not shown, output = %q", output)
	}
	if got := len(env.mgr.History()); got != 1 {
		t.Errorf("history length = %d, want 1", got)
	}
}

func TestGenerateCommand_BatchReadsLines(t *testing.T) {
	photo := writePhoto(t)
	input := fmt.Sprintf("upload %q\nmode batch\ngenerate\nfirst look\n\nsecond look\n.\nquit\n", photo)
	env := testREPL(t, input)
	env.run(t)

	if len(env.editor.requests) != 2 {
		t.Fatalf("editor called %d times, want 2", len(env.editor.requests))
	}
	if !strings.Contains(env.editor.requests[0].Instruction, "first look") {
		t.Errorf("first instruction = %q", env.editor.requests[0].Instruction)
	}
	if !strings.Contains(env.editor.requests[1].Instruction, "second look") {
		t.Errorf("second instruction = %q", env.editor.requests[1].Instruction)
	}
	for _, name := range []string{"cyberedit-1-first-look.png", "cyberedit-2-second-look.png"} {
		if _, err := os.Stat(filepath.Join(env.outDir, name)); err != nil {
			t.Errorf("%s not saved: %v", name, err)
		}
	}
}

func TestGenerateCommand_QuotaExceeded(t *testing.T) {
	photo := writePhoto(t)
	input := fmt.Sprintf("upload %q\ng one\ng two\ng three\nquit\n", photo)
	env := testREPL(t, input)
	env.run(t)

	if len(env.editor.requests) != 2 {
		t.Errorf("editor called %d times, want 2", len(env.editor.requests))
	}
	output := env.out.String()
	if !strings.Contains(output, "Trial expired") {
		t.Errorf("trial expired message missing, output = %q", output)
	}
	if !strings.Contains(output, "license <key>") {
		t.Error("license hint missing")
	}
}

func TestGenerateCommand_ServiceError(t *testing.T) {
	photo := writePhoto(t)
	env := testREPL(t, fmt.Sprintf("upload %q\ngenerate neon\nquit\n", photo))
	env.editor.editFunc = func(context.Context, *models.EditRequest) (*models.Response, error) {
		return nil, fmt.Errorf("%w: quota exhausted upstream", provider.ErrGenerationFailed)
	}
	env.run(t)

	if !strings.Contains(env.errOut.String(), "quota exhausted upstream") {
		t.Errorf("stderr = %q, want service message", env.errOut.String())
	}
	if got := env.mgr.Snapshot().RemainingTrialUses; got != 2 {
		t.Errorf("trial uses = %d, want unchanged 2", got)
	}
}

func TestStatusCommand_ShowsFailureUntilNextGenerate(t *testing.T) {
	photo := writePhoto(t)
	env := testREPL(t, fmt.Sprintf("upload %q\ngenerate neon\nstatus\ngenerate\nstatus\nquit\n", photo))
	env.editor.editFunc = func(context.Context, *models.EditRequest) (*models.Response, error) {
		return nil, fmt.Errorf("%w: upstream timeout", provider.ErrGenerationFailed)
	}
	env.run(t)

	output := env.out.String()
	failed := strings.Index(output, "Last run: failed: ")
	if failed < 0 || !strings.Contains(output[failed:], "upstream timeout") {
		t.Fatalf("status did not report the failure:\n%s", output)
	}
	if !strings.Contains(output[failed:], "Last run: idle") {
		t.Errorf("next generate did not dismiss the failure:\n%s", output)
	}
	if got := env.mgr.Phase(); got != session.PhaseIdle {
		t.Errorf("Phase() = %v, want idle", got)
	}
}

func TestHistoryCommand_Empty(t *testing.T) {
	env := testREPL(t, "history\nquit\n")
	env.run(t)

	if !strings.Contains(env.out.String(), "No history") {
		t.Error("history command did not show empty message")
	}
}

func TestHistoryCommand_ListsRecords(t *testing.T) {
	photo := writePhoto(t)
	env := testREPL(t, fmt.Sprintf("upload %q\ngenerate neon city\nhistory\nquit\n", photo))
	env.run(t)

	output := env.out.String()
	if !strings.Contains(output, "rec-1") {
		t.Error("history did not list the record id")
	}
	if !strings.Contains(output, "1 hour ago") {
		t.Errorf("history did not show a relative time, output = %q", output)
	}
}

func TestDeleteCommand(t *testing.T) {
	photo := writePhoto(t)
	env := testREPL(t, fmt.Sprintf("upload %q\ngenerate neon\ndelete rec-1\ndelete rec-9\nquit\n", photo))
	env.run(t)

	if got := len(env.mgr.History()); got != 0 {
		t.Errorf("history length = %d, want 0", got)
	}
	if !strings.Contains(env.errOut.String(), "history record not found: rec-9") {
		t.Errorf("stderr = %q, want not found error", env.errOut.String())
	}
}

func TestClearCommand(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		wantLen int
	}{
		{"confirmed", "y", 0},
		{"confirmed long", "YES", 0},
		{"declined", "n", 1},
		{"empty answer", "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			photo := writePhoto(t)
			env := testREPL(t, fmt.Sprintf("upload %q\ngenerate neon\nclear\n%s\nquit\n", photo, tt.answer))
			env.run(t)

			if got := len(env.mgr.History()); got != tt.wantLen {
				t.Errorf("history length = %d, want %d", got, tt.wantLen)
			}
			if !strings.Contains(env.out.String(), "Are you sure") {
				t.Error("clear did not ask for confirmation")
			}
		})
	}
}

func TestLicenseCommand(t *testing.T) {
	env := testREPL(t, "license WRONG-KEY\nlicense "+session.LicenseKey+"\nquit\n")
	env.run(t)

	if !strings.Contains(env.errOut.String(), "Invalid License Key") {
		t.Errorf("stderr = %q, want invalid license", env.errOut.String())
	}
	if !strings.Contains(env.out.String(), "License activated successfully!") {
		t.Error("license did not confirm activation")
	}
	if !env.mgr.Snapshot().Licensed {
		t.Error("license not applied")
	}
	if v, _, _ := env.kv.Get(context.Background(), session.KeyLicensed); v != "true" {
		t.Errorf("persisted license = %q, want true", v)
	}
}

func TestCompareCommand(t *testing.T) {
	photo := writePhoto(t)
	out := filepath.Join(t.TempDir(), "cmp.png")
	env := testREPL(t, fmt.Sprintf("upload %q\ngenerate neon\ncompare rec-1 25 %q\nquit\n", photo, out))
	env.run(t)

	if env.errOut.Len() != 0 {
		t.Fatalf("stderr = %q", env.errOut.String())
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("comparison not written: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	// Left of the split shows the original (red), right the edit (blue).
	if r, _, _, _ := img.At(0, 4).RGBA(); r == 0 {
		t.Error("left column is not the original image")
	}
	if _, _, b, _ := img.At(7, 4).RGBA(); b == 0 {
		t.Error("right column is not the generated image")
	}
	if !strings.Contains(env.out.String(), "(25%)") {
		t.Errorf("split position not reported, output = %q", env.out.String())
	}
}

func TestCompareCommand_Errors(t *testing.T) {
	env := testREPL(t, "compare\ncompare missing\nquit\n")
	env.run(t)

	errOut := env.errOut.String()
	if !strings.Contains(errOut, "usage: compare") {
		t.Errorf("stderr = %q, want usage", errOut)
	}
	if !strings.Contains(errOut, "history record not found: missing") {
		t.Errorf("stderr = %q, want not found", errOut)
	}
}

func TestLocaleCommand(t *testing.T) {
	env := testREPL(t, "locale vi\nhistory\nlocale XX\nquit\n")
	env.run(t)

	if got := env.mgr.Snapshot().Locale; got != models.LocaleVI {
		t.Errorf("locale = %s, want VI", got)
	}
	if !strings.Contains(env.out.String(), "Chưa có lịch sử") {
		t.Error("history not shown in Vietnamese")
	}
	if v, _, _ := env.kv.Get(context.Background(), session.KeyLocale); v != "VI" {
		t.Errorf("persisted locale = %q, want VI", v)
	}
	if !strings.Contains(env.errOut.String(), models.ErrUnsupportedLocale.Error()) {
		t.Errorf("stderr = %q, want unsupported locale", env.errOut.String())
	}
}

func TestStatusCommand(t *testing.T) {
	env := testREPL(t, "status\nquit\n")
	env.run(t)

	output := env.out.String()
	for _, want := range []string{"Free trial uses remaining: 2", "Quality: 4K", "No image uploaded."} {
		if !strings.Contains(output, want) {
			t.Errorf("status output missing %q", want)
		}
	}
}

func TestIsYes(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y", true},
		{"Yes", true},
		{" YES ", true},
		{"n", false},
		{"", false},
		{"yep", false},
	}
	for _, tt := range tests {
		if got := isYes(tt.input); got != tt.want {
			t.Errorf("isYes(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestCommand_Interface(t *testing.T) {
	for _, cmd := range allCommands() {
		t.Run(cmd.Name(), func(t *testing.T) {
			if cmd.Name() == "" {
				t.Error("Name() returned empty string")
			}
			if cmd.Description() == "" {
				t.Error("Description() returned empty string")
			}
			if cmd.Usage() == "" {
				t.Error("Usage() returned empty string")
			}
		})
	}
}
