package ui

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
)

// editorCommand resolves the editor to run: the configured one, then
// $EDITOR, then vi.
func editorCommand(configured string, lookup func(string) string) ([]string, error) {
	editor := strings.TrimSpace(configured)
	if editor == "" {
		editor = strings.TrimSpace(lookup("EDITOR"))
	}
	if editor == "" {
		editor = "vi"
	}
	args, err := shellquote.Split(editor)
	if err != nil {
		return nil, fmt.Errorf("invalid editor command %q: %w", editor, err)
	}
	if len(args) == 0 {
		return nil, errors.New("empty editor command")
	}
	return args, nil
}

// writeEditorFile stores seed in a temp file for the editor to open.
func writeEditorFile(seed, ext string) (string, error) {
	f, err := os.CreateTemp("", "xplore-body-*"+ext)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if seed != "" && !strings.HasSuffix(seed, "\n") {
		seed += "\n"
	}
	if _, err := f.WriteString(seed); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// runEditor opens file in the editor on the real terminal and returns what
// was saved. The file is removed afterwards.
func runEditor(args []string, file string) (string, error) {
	defer os.Remove(file)

	cmd := exec.Command(args[0], append(args[1:], file)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", err
	}

	b, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\n"), nil
}
