package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// layoutProperties are the arguments shared by both stitch tools.
func layoutProperties() map[string]interface{} {
	return map[string]interface{}{
		"direction": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"vertical", "horizontal"},
			"description": "Stack images top to bottom (vertical) or left to right (horizontal). Default vertical",
			"default":     "vertical",
		},
		"target_extent": map[string]interface{}{
			"type":        "integer",
			"description": "Cross-axis size of every image: width when vertical, height when horizontal. 0 scales to the largest image, -1 to the smallest, a positive value is fixed pixels. Default 0",
			"default":     0,
		},
		"native": map[string]interface{}{
			"type":        "boolean",
			"description": "Draw every image at its own size, ignoring target_extent",
			"default":     false,
		},
		"spacing": map[string]interface{}{
			"type":        "integer",
			"description": "Gap between images in pixels. Default 0",
			"default":     0,
		},
		"fill_color": map[string]interface{}{
			"type":        "string",
			"description": "Background color as hex (#RRGGBB or #RRGGBBAA). Omit for transparent",
		},
	}
}

// outputProperties are the arguments shared by every tool that writes a file.
func outputProperties() map[string]interface{} {
	return map[string]interface{}{
		"output": map[string]interface{}{
			"type":        "string",
			"description": "Absolute path of the file to write",
		},
		"format": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"png", "jpeg", "gif", "tiff", "bmp"},
			"description": "Output format. Default is taken from the output extension",
		},
		"quality": map[string]interface{}{
			"type":        "integer",
			"description": "JPEG quality 1-100. Default from server configuration",
		},
	}
}

func merge(maps ...map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_bounds",
			Description: "Get the width and height of an image as it is displayed, after EXIF orientation is applied, plus the rotation in degrees.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_stitch",
			Description: "Stitch images into one, vertically or horizontally, scaling each to a common extent, and write the result to a file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": merge(
					map[string]interface{}{
						"paths": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "string"},
							"description": "Absolute paths of the images, in stitch order",
						},
						"dry_run": map[string]interface{}{
							"type":        "boolean",
							"description": "Only compute the output size. Nothing is decoded or written",
							"default":     false,
						},
					},
					layoutProperties(),
					outputProperties(),
				),
				"required": []string{"paths", "output"},
			},
		},
		{
			Name:        "image_stitch_repeat",
			Description: "Stitch one image repeated N times, vertically or horizontally. The image is decoded once.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": merge(
					map[string]interface{}{
						"path": map[string]interface{}{
							"type":        "string",
							"description": "Absolute path to the image file",
						},
						"repeat": map[string]interface{}{
							"type":        "integer",
							"description": "Number of copies, at least 1",
						},
					},
					layoutProperties(),
					outputProperties(),
				),
				"required": []string{"path", "repeat", "output"},
			},
		},
		{
			Name:        "image_clip",
			Description: "Clip an image and write the result to a file. Modes: rect (x, y, width, height), center (width, height), x_center (width), y_center (height), square, circle and round (radius). A region that does not fit leaves the image unchanged.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": merge(
					map[string]interface{}{
						"path": map[string]interface{}{
							"type":        "string",
							"description": "Absolute path to the image file",
						},
						"mode": map[string]interface{}{
							"type":        "string",
							"enum":        clipModes,
							"description": "Clip operation",
						},
						"x": map[string]interface{}{
							"type":        "integer",
							"description": "Left edge for rect mode",
						},
						"y": map[string]interface{}{
							"type":        "integer",
							"description": "Top edge for rect mode",
						},
						"width": map[string]interface{}{
							"type":        "integer",
							"description": "Region width for rect, center and x_center modes",
						},
						"height": map[string]interface{}{
							"type":        "integer",
							"description": "Region height for rect, center and y_center modes",
						},
						"radius": map[string]interface{}{
							"type":        "integer",
							"description": "Corner radius for round mode",
						},
					},
					outputProperties(),
				),
				"required": []string{"path", "mode", "output"},
			},
		},
		{
			Name:        "stitch_clear_cache",
			Description: "Release every pooled decode buffer and forget cached image bounds. Returns the pool counters from before the clear.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
