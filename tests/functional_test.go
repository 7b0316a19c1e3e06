package tests

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// TestFunctional runs .tea files through the compiled teascript binary and
// compares combined stdout/stderr against the matching .want file. It tests
// the actual binary, the same surface a user drives.
func TestFunctional(t *testing.T) {
	projectRoot, err := filepath.Abs("..")
	if err != nil {
		t.Fatalf("failed to get project root: %v", err)
	}

	binaryPath := filepath.Join(projectRoot, "teascript-test-binary")
	defer os.Remove(binaryPath)

	t.Log("building fresh binary")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/teascript")
	cmd.Dir = projectRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to build binary: %v\n%s", err, output)
	}

	var testFiles []string
	err = filepath.Walk(".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".tea") {
			return nil
		}
		wantFile := strings.TrimSuffix(path, ".tea") + ".want"
		if _, err := os.Stat(wantFile); err == nil {
			testFiles = append(testFiles, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk directory: %v", err)
	}

	if len(testFiles) == 0 {
		t.Skip("no .tea test files with a matching .want found")
	}

	for _, testFile := range testFiles {
		testFile := testFile
		testName := strings.TrimSuffix(filepath.Base(testFile), filepath.Ext(testFile))

		t.Run(testName, func(t *testing.T) {
			absPath, err := filepath.Abs(testFile)
			if err != nil {
				t.Fatalf("failed to get absolute path: %v", err)
			}

			wantBytes, err := os.ReadFile(strings.TrimSuffix(testFile, ".tea") + ".want")
			if err != nil {
				t.Fatalf("failed to read .want file: %v", err)
			}
			want := strings.TrimSpace(string(wantBytes))

			cmd := exec.Command(binaryPath, absPath)
			cmd.Dir = projectRoot
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			_ = cmd.Run()

			stdoutStr := strings.TrimSpace(stdout.String())
			stderrStr := strings.TrimSpace(stderr.String())

			if stderrStr != "" {
				stderrStr = strings.ReplaceAll(stderrStr, projectRoot+"/", "")
				re := regexp.MustCompile(`(- )(.*?: )(\[.*?\] )?(error)`)
				stderrStr = re.ReplaceAllString(stderrStr, "$1$3$4")
			}

			var got string
			switch {
			case stdoutStr != "" && stderrStr != "":
				got = stdoutStr + "\n" + stderrStr
			case stdoutStr != "":
				got = stdoutStr
			default:
				got = stderrStr
			}

			got = strings.TrimSpace(strings.ReplaceAll(got, "\r\n", "\n"))
			want = strings.TrimSpace(strings.ReplaceAll(want, "\r\n", "\n"))

			if got != want {
				t.Errorf("output mismatch:\n--- want ---\n%s\n--- got ---\n%s", want, got)
			}
		})
	}
}
