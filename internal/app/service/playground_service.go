package service

import (
	"context"
	"math/rand"
	"regexp"
	"strings"

	"code_farm/internal/common"
	"code_farm/internal/domain/model"
)

// PlaygroundService fabricates run output by pattern-matching the submitted
// source. No compiler, interpreter or sandbox is involved; this mirrors what
// a real execution backend would return so the editor flow can be exercised
// without one.
type PlaygroundService struct{}

func NewPlaygroundService() *PlaygroundService {
	return &PlaygroundService{}
}

type RunCodeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
	Input    string `json:"input,omitempty"`
}

type RunCodeResult struct {
	Output    string `json:"output"`
	Status    string `json:"status"`
	RuntimeMs int    `json:"runtime_ms"`
	MemoryKb  int    `json:"memory_kb"`
}

const (
	defaultOutput = "Hello, Cultivator!"
	noOutput      = "[Program executed with no output]"
)

var (
	pyPrintRe   = regexp.MustCompile(`print\s*\(\s*["']([^"']+)["']\s*\)`)
	jsLogRe     = regexp.MustCompile(`console\.log\s*\(\s*["']([^"']+)["']\s*\)`)
	cppCoutRe   = regexp.MustCompile(`cout\s*<<\s*["']([^"']+)["']`)
	cPrintfRe   = regexp.MustCompile(`printf\s*\(\s*["']([^"'\\]+)`)
	javaPrintRe = regexp.MustCompile(`System\.out\.print(?:ln)?\s*\(\s*["']([^"']+)["']\s*\)`)
	goPrintRe   = regexp.MustCompile(`fmt\.Print(?:ln|f)?\s*\(\s*"([^"]+)"`)
	rustPrintRe = regexp.MustCompile(`println!\s*\(\s*"([^"]+)"`)
)

func (s *PlaygroundService) RunCode(_ context.Context, req RunCodeRequest) (*RunCodeResult, error) {
	if req.Code == "" || req.Language == "" {
		return nil, common.Errorf("missing required fields: %w", common.ErrBadRequest)
	}
	if !model.ValidLanguages[req.Language] {
		return nil, common.Errorf("invalid language %q: %w", req.Language, common.ErrBadRequest)
	}

	output := simulateOutput(req.Code, req.Language, req.Input)
	if output == "" {
		output = noOutput
	}

	return &RunCodeResult{
		Output:    output,
		Status:    "success",
		RuntimeMs: rand.Intn(50) + 10,
		MemoryKb:  rand.Intn(2000) + 1000,
	}, nil
}

func simulateOutput(code, language, input string) string {
	firstInputLine := ""
	if input != "" {
		firstInputLine = strings.SplitN(input, "\n", 2)[0]
	}

	switch language {
	case "python":
		if strings.Contains(code, "input()") && firstInputLine != "" {
			return firstInputLine
		}
		if m := pyPrintRe.FindStringSubmatch(code); m != nil {
			return m[1]
		}
		if strings.Contains(code, "print(") {
			return defaultOutput
		}
	case "javascript":
		if m := jsLogRe.FindStringSubmatch(code); m != nil {
			return m[1]
		}
		if strings.Contains(code, "console.log") {
			return defaultOutput
		}
	case "cpp":
		if strings.Contains(code, "cin") && firstInputLine != "" {
			return "Input received: " + firstInputLine
		}
		if m := cppCoutRe.FindStringSubmatch(code); m != nil {
			return m[1]
		}
		if m := cPrintfRe.FindStringSubmatch(code); m != nil {
			return m[1]
		}
		if strings.Contains(code, "cout") || strings.Contains(code, "printf") {
			return defaultOutput
		}
	case "java":
		if m := javaPrintRe.FindStringSubmatch(code); m != nil {
			return m[1]
		}
		if strings.Contains(code, "System.out.print") {
			return defaultOutput
		}
	case "go":
		if m := goPrintRe.FindStringSubmatch(code); m != nil {
			return m[1]
		}
		if strings.Contains(code, "fmt.Print") {
			return defaultOutput
		}
	case "rust":
		if m := rustPrintRe.FindStringSubmatch(code); m != nil {
			return m[1]
		}
		if strings.Contains(code, "println!") {
			return defaultOutput
		}
	}
	return ""
}
