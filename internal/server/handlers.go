package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ironsheep/image-stitch-mcp/internal/imaging"
	"github.com/ironsheep/image-stitch-mcp/internal/layout"
	"github.com/ironsheep/image-stitch-mcp/pkg/stitcher"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_stitch", "image_clip").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "err", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_bounds":
		return s.handleImageBounds(args)
	case "image_stitch":
		return s.handleImageStitch(args)
	case "image_stitch_repeat":
		return s.handleImageStitchRepeat(args)
	case "image_clip":
		return s.handleImageClip(args)
	case "stitch_clear_cache":
		return s.handleClearCache(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments. An absent object decodes to the
// zero value.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// === Shared Arguments ===

type layoutArgs struct {
	Direction    string `json:"direction"`
	TargetExtent int    `json:"target_extent"`
	Native       bool   `json:"native"`
	Spacing      int    `json:"spacing"`
	FillColor    string `json:"fill_color"`
}

// options converts the layout arguments and reports the direction.
func (a layoutArgs) options() (layout.Direction, stitcher.Options, error) {
	dir := layout.Vertical
	if a.Direction != "" {
		d, err := layout.ParseDirection(strings.ToLower(a.Direction))
		if err != nil {
			return dir, stitcher.Options{}, err
		}
		dir = d
	}

	opts := stitcher.Options{
		TargetExtent: a.TargetExtent,
		Native:       a.Native,
		Spacing:      a.Spacing,
	}
	if a.FillColor != "" {
		c, err := imaging.ParseColor(a.FillColor)
		if err != nil {
			return dir, stitcher.Options{}, err
		}
		opts.FillColor = c
	}
	return dir, opts, nil
}

type outputArgs struct {
	Output  string `json:"output"`
	Format  string `json:"format"`
	Quality int    `json:"quality"`
}

// validate resolves the output format so a bad path fails before any
// decoding.
func (a outputArgs) validate() (string, error) {
	if a.Output == "" {
		return "", errors.New("output path is required")
	}
	f, err := imaging.ResolveFormat(a.Output, a.Format)
	if err != nil {
		return "", err
	}
	return strings.ToLower(f.String()), nil
}

// OutputResult describes a written image.
type OutputResult struct {
	Output string `json:"output,omitempty"`
	Format string `json:"format,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// save writes r and releases it, on failure too.
func (s *Server) save(r *stitcher.Raster, out outputArgs, format string) (*OutputResult, error) {
	res := &OutputResult{
		Output: out.Output,
		Format: format,
		Width:  r.Width(),
		Height: r.Height(),
	}
	err := s.stitcher.Save(r, out.Output, stitcher.SaveOptions{
		Format:  out.Format,
		Quality: out.Quality,
		Release: true,
	})
	if err != nil {
		r.Release()
		return nil, err
	}
	return res, nil
}

// === Bounds Handler ===

type imageBoundsArgs struct {
	Path string `json:"path"`
}

// BoundsResult is the oriented size of a source.
type BoundsResult struct {
	Path     string `json:"path"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Rotation int    `json:"rotation"`
}

func (s *Server) handleImageBounds(args json.RawMessage) (interface{}, error) {
	var a imageBoundsArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	b, err := s.stitcher.Bounds(a.Path)
	if err != nil {
		return nil, err
	}
	return &BoundsResult{Path: a.Path, Width: b.Width, Height: b.Height, Rotation: b.Rotation}, nil
}

// === Stitch Handlers ===

type imageStitchArgs struct {
	Paths  []string `json:"paths"`
	DryRun bool     `json:"dry_run"`
	layoutArgs
	outputArgs
}

// StitchResult reports a stitch. A dry run has no output or format.
type StitchResult struct {
	OutputResult
	Count  int  `json:"count"`
	DryRun bool `json:"dry_run,omitempty"`
}

func (s *Server) handleImageStitch(args json.RawMessage) (interface{}, error) {
	var a imageStitchArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, fmt.Errorf("%w: paths is empty", stitcher.ErrEmptyInput)
	}
	dir, opts, err := a.options()
	if err != nil {
		return nil, err
	}
	horizontal := dir == layout.Horizontal

	if a.DryRun {
		size := s.stitcher.Measure(a.Paths, horizontal, opts)
		if size.Empty() {
			return nil, fmt.Errorf("%w: no readable layout", stitcher.ErrEmptyInput)
		}
		return &StitchResult{
			OutputResult: OutputResult{Width: size.Width, Height: size.Height},
			Count:        len(a.Paths),
			DryRun:       true,
		}, nil
	}

	format, err := a.outputArgs.validate()
	if err != nil {
		return nil, err
	}

	var out *stitcher.Raster
	if horizontal {
		out, err = s.stitcher.StitchHorizontal(a.Paths, opts)
	} else {
		out, err = s.stitcher.StitchVertical(a.Paths, opts)
	}
	if err != nil {
		return nil, err
	}

	res, err := s.save(out, a.outputArgs, format)
	if err != nil {
		return nil, err
	}
	return &StitchResult{OutputResult: *res, Count: len(a.Paths)}, nil
}

type imageStitchRepeatArgs struct {
	Path   string `json:"path"`
	Repeat int    `json:"repeat"`
	layoutArgs
	outputArgs
}

func (s *Server) handleImageStitchRepeat(args json.RawMessage) (interface{}, error) {
	var a imageStitchRepeatArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("%w: path is required", stitcher.ErrEmptyInput)
	}
	dir, opts, err := a.options()
	if err != nil {
		return nil, err
	}
	format, err := a.outputArgs.validate()
	if err != nil {
		return nil, err
	}

	var out *stitcher.Raster
	if dir == layout.Horizontal {
		out, err = s.stitcher.StitchHorizontalRepeat(a.Path, a.Repeat, opts)
	} else {
		out, err = s.stitcher.StitchVerticalRepeat(a.Path, a.Repeat, opts)
	}
	if err != nil {
		return nil, err
	}

	res, err := s.save(out, a.outputArgs, format)
	if err != nil {
		return nil, err
	}
	return &StitchResult{OutputResult: *res, Count: a.Repeat}, nil
}

// === Clip Handler ===

var clipModes = []string{"rect", "center", "x_center", "y_center", "square", "circle", "round"}

type imageClipArgs struct {
	Path   string `json:"path"`
	Mode   string `json:"mode"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Radius int    `json:"radius"`
	outputArgs
}

// ClipResult reports a clip. Unchanged is set when the region did not fit
// and the source was written as is.
type ClipResult struct {
	OutputResult
	Mode      string `json:"mode"`
	Unchanged bool   `json:"unchanged"`
}

func (s *Server) clip(src *stitcher.Raster, a imageClipArgs) (*stitcher.Raster, error) {
	switch a.Mode {
	case "rect":
		return s.stitcher.Clip(src, a.X, a.Y, a.Width, a.Height), nil
	case "center":
		return s.stitcher.ClipFromCenter(src, a.Width, a.Height), nil
	case "x_center":
		return s.stitcher.ClipXFromCenter(src, a.Width), nil
	case "y_center":
		return s.stitcher.ClipYFromCenter(src, a.Height), nil
	case "square":
		return s.stitcher.ClipToSquare(src), nil
	case "circle":
		return s.stitcher.ClipToCircle(src), nil
	case "round":
		return s.stitcher.ClipToRound(src, a.Radius), nil
	default:
		return nil, fmt.Errorf("unknown clip mode %q (want one of %s)", a.Mode, strings.Join(clipModes, ", "))
	}
}

func (s *Server) handleImageClip(args json.RawMessage) (interface{}, error) {
	var a imageClipArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	format, err := a.outputArgs.validate()
	if err != nil {
		return nil, err
	}

	src, err := s.stitcher.Load(a.Path)
	if err != nil {
		return nil, err
	}
	out, err := s.clip(src, a)
	if err != nil {
		src.Release()
		return nil, err
	}
	if out == nil {
		src.Release()
		return nil, fmt.Errorf("clip %s produced no image", a.Mode)
	}
	unchanged := out == src

	res, err := s.save(out, a.outputArgs, format)
	if err != nil {
		return nil, err
	}
	return &ClipResult{OutputResult: *res, Mode: a.Mode, Unchanged: unchanged}, nil
}

// === Cache Handler ===

// ClearCacheResult carries the pool counters observed before clearing.
type ClearCacheResult struct {
	Cleared bool               `json:"cleared"`
	Pool    stitcher.PoolStats `json:"pool"`
}

func (s *Server) handleClearCache(args json.RawMessage) (interface{}, error) {
	var a struct{}
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	stats := s.stitcher.PoolStats()
	s.stitcher.ClearCache()
	return &ClearCacheResult{Cleared: true, Pool: stats}, nil
}
