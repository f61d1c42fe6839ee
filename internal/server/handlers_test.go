package server

import (
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createTestImageFile writes a solid PNG into the test's temp dir and
// returns its path.
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	f, err := os.CreateTemp(t.TempDir(), "handler-test-*.png")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return f.Name()
}

func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	params := map[string]interface{}{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeResult unpacks the JSON text of a successful tool call into v.
func decodeResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %v", result["content"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("result text is not JSON: %v\n%s", err, text)
	}
}

func wantToolError(t *testing.T, resp *MCPResponse, contains string) {
	t.Helper()

	if resp.Error == nil {
		t.Fatal("expected an error response")
	}
	if resp.Error.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
	}
	data, _ := resp.Error.Data.(string)
	if contains != "" && !strings.Contains(data, contains) {
		t.Errorf("Error data: got %q, want it to contain %q", data, contains)
	}
}

func readPNG(t *testing.T, path string) image.Image {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	return img
}

func TestHandleToolsCall_ImageBounds(t *testing.T) {
	s := New()
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	var got BoundsResult
	decodeResult(t, callTool(t, s, "image_bounds", map[string]interface{}{"path": imgPath}), &got)

	if got.Width != 100 || got.Height != 80 {
		t.Errorf("bounds: got %dx%d, want 100x80", got.Width, got.Height)
	}
	if got.Rotation != 0 {
		t.Errorf("rotation: got %d, want 0", got.Rotation)
	}
	if got.Path != imgPath {
		t.Errorf("path: got %s, want %s", got.Path, imgPath)
	}
}

func TestHandleToolsCall_ImageBoundsErrors(t *testing.T) {
	s := New()

	wantToolError(t, callTool(t, s, "image_bounds", map[string]interface{}{
		"path": filepath.Join(t.TempDir(), "missing.png"),
	}), "failed to open image")
	wantToolError(t, callTool(t, s, "image_bounds", map[string]interface{}{}), "path is required")
}

func TestHandleToolsCall_StitchVertical(t *testing.T) {
	s := New()
	a := createTestImageFile(t, 100, 50, color.RGBA{255, 0, 0, 255})
	b := createTestImageFile(t, 50, 50, color.RGBA{0, 0, 255, 255})
	output := filepath.Join(t.TempDir(), "out.png")

	var got StitchResult
	decodeResult(t, callTool(t, s, "image_stitch", map[string]interface{}{
		"paths":  []string{a, b},
		"output": output,
	}), &got)

	// The 50x50 image scales up to the 100px width
	if got.Width != 100 || got.Height != 150 {
		t.Errorf("result: got %dx%d, want 100x150", got.Width, got.Height)
	}
	if got.Count != 2 || got.Format != "png" || got.Output != output {
		t.Errorf("result: got %+v", got)
	}

	img := readPNG(t, output)
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 150 {
		t.Errorf("file: got %v, want 100x150", img.Bounds())
	}
}

func TestHandleToolsCall_StitchHorizontalWithFill(t *testing.T) {
	s := New()
	a := createTestImageFile(t, 40, 40, color.RGBA{255, 0, 0, 255})
	b := createTestImageFile(t, 40, 40, color.RGBA{255, 0, 0, 255})
	output := filepath.Join(t.TempDir(), "out.png")

	var got StitchResult
	decodeResult(t, callTool(t, s, "image_stitch", map[string]interface{}{
		"paths":      []string{a, b},
		"output":     output,
		"direction":  "Horizontal",
		"spacing":    10,
		"fill_color": "#ffffff",
	}), &got)

	if got.Width != 90 || got.Height != 40 {
		t.Fatalf("result: got %dx%d, want 90x40", got.Width, got.Height)
	}

	img := readPNG(t, output)
	gap := color.NRGBAModel.Convert(img.At(45, 20)).(color.NRGBA)
	if gap != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("gap pixel: got %v, want white", gap)
	}
	item := color.NRGBAModel.Convert(img.At(20, 20)).(color.NRGBA)
	if item != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("item pixel: got %v, want red", item)
	}
}

func TestHandleToolsCall_StitchDryRun(t *testing.T) {
	s := New()
	a := createTestImageFile(t, 200, 100, color.White)
	b := createTestImageFile(t, 100, 100, color.White)
	output := filepath.Join(t.TempDir(), "never.png")

	var got StitchResult
	decodeResult(t, callTool(t, s, "image_stitch", map[string]interface{}{
		"paths":         []string{a, b},
		"output":        output,
		"target_extent": 100,
		"dry_run":       true,
	}), &got)

	// 200x100 at width 100 is 50 tall
	if got.Width != 100 || got.Height != 150 {
		t.Errorf("size: got %dx%d, want 100x150", got.Width, got.Height)
	}
	if !got.DryRun || got.Output != "" {
		t.Errorf("dry run result: got %+v", got)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Error("dry run must not write the output")
	}
}

func TestHandleToolsCall_StitchErrors(t *testing.T) {
	img := createTestImageFile(t, 10, 10, color.White)
	dir := t.TempDir()

	tests := []struct {
		name     string
		args     map[string]interface{}
		contains string
	}{
		{
			"no paths",
			map[string]interface{}{"paths": []string{}, "output": filepath.Join(dir, "a.png")},
			"empty input",
		},
		{
			"missing source",
			map[string]interface{}{"paths": []string{filepath.Join(dir, "missing.png")}, "output": filepath.Join(dir, "b.png")},
			"empty input",
		},
		{
			"bad direction",
			map[string]interface{}{"paths": []string{img}, "output": filepath.Join(dir, "c.png"), "direction": "diagonal"},
			"unknown direction",
		},
		{
			"bad fill color",
			map[string]interface{}{"paths": []string{img}, "output": filepath.Join(dir, "d.png"), "fill_color": "white"},
			"",
		},
		{
			"no output",
			map[string]interface{}{"paths": []string{img}},
			"output path is required",
		},
		{
			"unknown output format",
			map[string]interface{}{"paths": []string{img}, "output": filepath.Join(dir, "e.xyz")},
			"",
		},
	}

	s := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantToolError(t, callTool(t, s, "image_stitch", tt.args), tt.contains)
		})
	}
}

func TestHandleToolsCall_StitchRepeat(t *testing.T) {
	s := New()
	img := createTestImageFile(t, 100, 100, color.RGBA{0, 255, 0, 255})
	output := filepath.Join(t.TempDir(), "repeat.png")

	var got StitchResult
	decodeResult(t, callTool(t, s, "image_stitch_repeat", map[string]interface{}{
		"path":          img,
		"repeat":        3,
		"target_extent": 100,
		"spacing":       10,
		"output":        output,
	}), &got)

	if got.Width != 100 || got.Height != 320 {
		t.Errorf("result: got %dx%d, want 100x320", got.Width, got.Height)
	}
	if got.Count != 3 {
		t.Errorf("count: got %d, want 3", got.Count)
	}
	if b := readPNG(t, output).Bounds(); b.Dx() != 100 || b.Dy() != 320 {
		t.Errorf("file: got %v, want 100x320", b)
	}
}

func TestHandleToolsCall_StitchRepeatInvalid(t *testing.T) {
	s := New()
	img := createTestImageFile(t, 10, 10, color.White)
	dir := t.TempDir()

	for _, repeat := range []int{0, -2} {
		resp := callTool(t, s, "image_stitch_repeat", map[string]interface{}{
			"path":   img,
			"repeat": repeat,
			"output": filepath.Join(dir, "out.png"),
		})
		wantToolError(t, resp, "empty input")
	}
	wantToolError(t, callTool(t, s, "image_stitch_repeat", map[string]interface{}{
		"repeat": 2,
		"output": filepath.Join(dir, "out.png"),
	}), "path is required")
}

func TestHandleToolsCall_Clip(t *testing.T) {
	src := createTestImageFile(t, 120, 80, color.RGBA{0, 128, 255, 255})
	dir := t.TempDir()

	tests := []struct {
		name          string
		args          map[string]interface{}
		width, height int
		unchanged     bool
	}{
		{"rect", map[string]interface{}{"mode": "rect", "x": 10, "y": 10, "width": 50, "height": 40}, 50, 40, false},
		{"rect too large", map[string]interface{}{"mode": "rect", "width": 500, "height": 500}, 120, 80, true},
		{"center", map[string]interface{}{"mode": "center", "width": 60, "height": 60}, 60, 60, false},
		{"x center", map[string]interface{}{"mode": "x_center", "width": 40}, 40, 80, false},
		{"y center", map[string]interface{}{"mode": "y_center", "height": 20}, 120, 20, false},
		{"square", map[string]interface{}{"mode": "square"}, 80, 80, false},
		{"circle", map[string]interface{}{"mode": "circle"}, 80, 80, false},
		{"round", map[string]interface{}{"mode": "round", "radius": 10}, 120, 80, false},
	}

	s := New()
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".png")
			args := map[string]interface{}{"path": src, "output": output}
			for k, v := range tt.args {
				args[k] = v
			}

			var got ClipResult
			decodeResult(t, callTool(t, s, "image_clip", args), &got)

			if got.Width != tt.width || got.Height != tt.height {
				t.Errorf("case %d: got %dx%d, want %dx%d", i, got.Width, got.Height, tt.width, tt.height)
			}
			if got.Unchanged != tt.unchanged {
				t.Errorf("unchanged: got %v, want %v", got.Unchanged, tt.unchanged)
			}
			if b := readPNG(t, output).Bounds(); b.Dx() != tt.width || b.Dy() != tt.height {
				t.Errorf("file: got %v, want %dx%d", b, tt.width, tt.height)
			}
		})
	}
}

func TestHandleToolsCall_ClipCircleIsTransparentOutside(t *testing.T) {
	s := New()
	src := createTestImageFile(t, 64, 64, color.RGBA{255, 0, 0, 255})
	output := filepath.Join(t.TempDir(), "circle.png")

	var got ClipResult
	decodeResult(t, callTool(t, s, "image_clip", map[string]interface{}{
		"path":   src,
		"mode":   "circle",
		"output": output,
	}), &got)

	img := readPNG(t, output)
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0 {
		t.Errorf("corner alpha: got %d, want 0", a)
	}
	if _, _, _, a := img.At(32, 32).RGBA(); a != 0xffff {
		t.Errorf("center alpha: got %d, want 0xffff", a)
	}
}

func TestHandleToolsCall_ClipErrors(t *testing.T) {
	s := New()
	src := createTestImageFile(t, 20, 20, color.White)
	dir := t.TempDir()

	wantToolError(t, callTool(t, s, "image_clip", map[string]interface{}{
		"path": src, "mode": "hexagon", "output": filepath.Join(dir, "a.png"),
	}), "unknown clip mode")
	wantToolError(t, callTool(t, s, "image_clip", map[string]interface{}{
		"path": filepath.Join(dir, "missing.png"), "mode": "square", "output": filepath.Join(dir, "b.png"),
	}), "")
	wantToolError(t, callTool(t, s, "image_clip", map[string]interface{}{
		"mode": "square", "output": filepath.Join(dir, "c.png"),
	}), "path is required")
}

func TestHandleToolsCall_ClearCache(t *testing.T) {
	s := New()
	a := createTestImageFile(t, 30, 30, color.White)
	b := createTestImageFile(t, 30, 30, color.Black)

	var stitched StitchResult
	decodeResult(t, callTool(t, s, "image_stitch", map[string]interface{}{
		"paths":  []string{a, b},
		"output": filepath.Join(t.TempDir(), "out.png"),
	}), &stitched)

	var got ClearCacheResult
	decodeResult(t, callTool(t, s, "stitch_clear_cache", nil), &got)

	if !got.Cleared {
		t.Error("cleared: got false")
	}
	if got.Pool.Puts == 0 {
		t.Error("stitch should have retired decode buffers to the pool")
	}
	if n := s.stitcher.PoolStats().Len; n != 0 {
		t.Errorf("pool after clear: got %d entries, want 0", n)
	}
}

func TestHandleToolsCall_InvalidTool(t *testing.T) {
	s := New()
	wantToolError(t, callTool(t, s, "nonexistent_tool", map[string]interface{}{}), "unknown tool")
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New()
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`{invalid json}`),
	})

	if resp.Error == nil {
		t.Fatal("Expected error for invalid params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New()
	for _, name := range []string{"image_bounds", "image_stitch", "image_stitch_repeat", "image_clip", "stitch_clear_cache"} {
		if _, err := s.executeTool(name, json.RawMessage(`{"path": 42`)); err == nil {
			t.Errorf("%s: expected error for malformed arguments", name)
		}
	}
}
