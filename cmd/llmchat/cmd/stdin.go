package cmd

import (
	"io"
	"os"
	"strings"
)

// isPiped indica se stdin vem de um pipe ou arquivo, não do terminal.
func isPiped(f *os.File) bool {
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return (st.Mode() & os.ModeCharDevice) == 0
}

func readPiped(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
