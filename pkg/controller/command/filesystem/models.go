/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package filesystem

// PathRequest is the request of the Exists, CreateDirectory, Read and Delete commands.
type PathRequest struct {
	Path string `json:"path"`
}

// WriteRequest is the request of the Write command.
type WriteRequest struct {
	Path string `json:"path"`
	Data string `json:"data"`
}

// CopyFileRequest is the request of the CopyFile command.
type CopyFileRequest struct {
	SourcePath      string `json:"sourcePath"`
	DestinationPath string `json:"destinationPath"`
}

// DownloadToFileRequest is the request of the DownloadToFile command.
type DownloadToFileRequest struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// ExistsResponse is the response of the Exists command.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// ReadResponse is the response of the Read command.
type ReadResponse struct {
	Data string `json:"data"`
}

// PathsResponse is the response of the Paths command.
type PathsResponse struct {
	DataPath  string `json:"dataPath"`
	CachePath string `json:"cachePath"`
	TempPath  string `json:"tempPath"`
}
