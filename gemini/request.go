package gemini

import (
	"errors"
	"fmt"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// NormalizeRequest returns a copy of an ADK request whose function
// declarations have been normalized for Gemini. The request passed in is left
// untouched. Tools without function declarations (search, code execution) are
// kept as they are. Declarations that cannot be read are kept unchanged and
// reported in the joined error.
func (n *Normalizer) NormalizeRequest(req *model.LLMRequest) (*model.LLMRequest, error) {
	if req == nil || req.Config == nil || len(req.Config.Tools) == 0 {
		return req, nil
	}

	out := *req
	cfg := *req.Config
	cfg.Tools = make([]*genai.Tool, len(req.Config.Tools))
	out.Config = &cfg

	var errs []error
	for i, tool := range req.Config.Tools {
		if tool == nil || len(tool.FunctionDeclarations) == 0 {
			cfg.Tools[i] = tool
			continue
		}

		t := *tool
		t.FunctionDeclarations = make([]*genai.FunctionDeclaration, len(tool.FunctionDeclarations))
		for j, fd := range tool.FunctionDeclarations {
			decl, err := n.normalizeDeclaration(fd)
			if err != nil {
				errs = append(errs, fmt.Errorf("tools[%d].functionDeclarations[%d]: %w", i, j, err))
				decl = fd
			}
			t.FunctionDeclarations[j] = decl
		}
		cfg.Tools[i] = &t
	}

	return &out, errors.Join(errs...)
}

func (n *Normalizer) normalizeDeclaration(fd *genai.FunctionDeclaration) (*genai.FunctionDeclaration, error) {
	ft, err := ToolFromDeclaration(fd)
	if err != nil {
		return nil, err
	}

	// Copy so response schemas and behavior survive.
	decl := *fd
	n.setParameters(&decl, n.NormalizeTool(ft))
	return &decl, nil
}
