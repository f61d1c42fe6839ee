// Package server implements the MCP (Model Context Protocol) server for image stitching.
//
// This package provides a JSON-RPC 2.0 server that exposes the stitcher
// package through the MCP protocol, so MCP-compatible clients can combine,
// clip and measure image files on the local disk.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Diagnostics never go to stdout. Pass a logger that writes to stderr.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - image_bounds: Oriented width, height and rotation of a file
//   - image_stitch: Stitch a list of files and write the result
//   - image_stitch_repeat: Stitch one file N times and write the result
//   - image_clip: Rect, centred, square, circle or rounded clip of a file
//   - stitch_clear_cache: Drain the decode buffer pool
//
// Stitch tools take a direction ("vertical" or "horizontal"), a
// target_extent (0 largest, -1 smallest, >0 fixed pixels), native,
// spacing and an optional hex fill_color. Every tool that writes a file
// takes output, format and quality.
//
// # Usage
//
//	st := stitcher.New(stitcher.DefaultConfig())
//	srv := server.New(server.WithStitcher(st), server.WithLogger(logger))
//	if err := srv.Run(); err != nil {
//	    logger.Fatal(err)
//	}
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC errors with code -32000. Unknown
// methods return -32601 and malformed tools/call params return -32602.
// Errors from the stitcher keep their sentinels, so the data field names
// the failure class (empty input, oversize result, decode, composite or
// save failure).
//
// # Thread Safety
//
// Requests are handled one at a time in arrival order. One Stitcher, and
// with it one buffer pool, serves every request.
package server
