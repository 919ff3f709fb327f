/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-browser-wallet-go/pkg/controller/command"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/filesystem"
	"github.com/hyperledger/aries-browser-wallet-go/pkg/internal/logutil"
)

var logger = log.New("aries-framework/command/filesystem")

// Error codes.
const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.FileSystem)
	// NotFoundErrorCode for operations on a missing file.
	NotFoundErrorCode
	// ReadErrorCode for failures while checking or reading a path.
	ReadErrorCode
	// WriteErrorCode for failures while writing, copying or creating a directory.
	WriteErrorCode
	// DeleteErrorCode for failures while deleting a file.
	DeleteErrorCode
	// DownloadErrorCode for failures while downloading a file.
	DownloadErrorCode
)

// constants for the file system commands.
const (
	CommandName = "filesystem"

	PathsMethod           = "Paths"
	ExistsMethod          = "Exists"
	CreateDirectoryMethod = "CreateDirectory"
	CopyFileMethod        = "CopyFile"
	WriteMethod           = "Write"
	ReadMethod            = "Read"
	DeleteMethod          = "Delete"
	DownloadToFileMethod  = "DownloadToFile"

	downloadTimeout = 60 * time.Second
)

// Command exposes a filesystem.FileSystem as controller commands.
type Command struct {
	fs *filesystem.FileSystem
}

// New returns the file system command over fs.
func New(fs *filesystem.FileSystem) *Command {
	return &Command{fs: fs}
}

// GetHandlers returns list of all commands supported by this controller command.
func (o *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		command.NewHandler(CommandName, PathsMethod, o.Paths),
		command.NewHandler(CommandName, ExistsMethod, o.Exists),
		command.NewHandler(CommandName, CreateDirectoryMethod, o.CreateDirectory),
		command.NewHandler(CommandName, CopyFileMethod, o.CopyFile),
		command.NewHandler(CommandName, WriteMethod, o.Write),
		command.NewHandler(CommandName, ReadMethod, o.Read),
		command.NewHandler(CommandName, DeleteMethod, o.Delete),
		command.NewHandler(CommandName, DownloadToFileMethod, o.DownloadToFile),
	}
}

// Paths returns the well-known directories.
func (o *Command) Paths(rw io.Writer, _ io.Reader) command.Error {
	command.WriteNillableResponse(rw, &PathsResponse{
		DataPath:  o.fs.DataPath(),
		CachePath: o.fs.CachePath(),
		TempPath:  o.fs.TempPath(),
	}, logger)

	return nil
}

// Exists reports whether a path exists.
func (o *Command) Exists(rw io.Writer, req io.Reader) command.Error {
	var request PathRequest

	if cmdErr := decode(req, &request, ExistsMethod); cmdErr != nil {
		return cmdErr
	}

	ok, err := o.fs.Exists(request.Path)
	if err != nil {
		return newError(ReadErrorCode, ExistsMethod, err)
	}

	command.WriteNillableResponse(rw, &ExistsResponse{Exists: ok}, logger)

	return nil
}

// CreateDirectory creates a directory and its parents.
func (o *Command) CreateDirectory(rw io.Writer, req io.Reader) command.Error {
	var request PathRequest

	if cmdErr := decode(req, &request, CreateDirectoryMethod); cmdErr != nil {
		return cmdErr
	}

	if err := o.fs.CreateDirectory(request.Path); err != nil {
		return newError(WriteErrorCode, CreateDirectoryMethod, err)
	}

	command.WriteNillableResponse(rw, nil, logger)

	logutil.Debug(logger, CommandName, CreateDirectoryMethod, "success", "path", request.Path)

	return nil
}

// CopyFile copies a file.
func (o *Command) CopyFile(rw io.Writer, req io.Reader) command.Error {
	var request CopyFileRequest

	if cmdErr := decode(req, &request, CopyFileMethod); cmdErr != nil {
		return cmdErr
	}

	if err := o.fs.CopyFile(request.SourcePath, request.DestinationPath); err != nil {
		return newError(WriteErrorCode, CopyFileMethod, err)
	}

	command.WriteNillableResponse(rw, nil, logger)

	logutil.Debug(logger, CommandName, CopyFileMethod, "success",
		"sourcePath", request.SourcePath, "destinationPath", request.DestinationPath)

	return nil
}

// Write replaces the content of a file.
func (o *Command) Write(rw io.Writer, req io.Reader) command.Error {
	var request WriteRequest

	if cmdErr := decode(req, &request, WriteMethod); cmdErr != nil {
		return cmdErr
	}

	if err := o.fs.Write(request.Path, request.Data); err != nil {
		return newError(WriteErrorCode, WriteMethod, err)
	}

	command.WriteNillableResponse(rw, nil, logger)

	logutil.Debug(logger, CommandName, WriteMethod, "success", "path", request.Path)

	return nil
}

// Read returns the content of a file.
func (o *Command) Read(rw io.Writer, req io.Reader) command.Error {
	var request PathRequest

	if cmdErr := decode(req, &request, ReadMethod); cmdErr != nil {
		return cmdErr
	}

	data, err := o.fs.Read(request.Path)
	if err != nil {
		return newError(ReadErrorCode, ReadMethod, err)
	}

	command.WriteNillableResponse(rw, &ReadResponse{Data: data}, logger)

	return nil
}

// Delete removes a file.
func (o *Command) Delete(rw io.Writer, req io.Reader) command.Error {
	var request PathRequest

	if cmdErr := decode(req, &request, DeleteMethod); cmdErr != nil {
		return cmdErr
	}

	if err := o.fs.Delete(request.Path); err != nil {
		return newError(DeleteErrorCode, DeleteMethod, err)
	}

	command.WriteNillableResponse(rw, nil, logger)

	logutil.Debug(logger, CommandName, DeleteMethod, "success", "path", request.Path)

	return nil
}

// DownloadToFile stores the body fetched from a URL as a file.
func (o *Command) DownloadToFile(rw io.Writer, req io.Reader) command.Error {
	var request DownloadToFileRequest

	if cmdErr := decode(req, &request, DownloadToFileMethod); cmdErr != nil {
		return cmdErr
	}

	if request.URL == "" {
		logutil.Debug(logger, CommandName, DownloadToFileMethod, "url is mandatory")

		return command.NewValidationError(InvalidRequestErrorCode, errors.New("url is mandatory"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
	defer cancel()

	if err := o.fs.DownloadToFile(ctx, request.URL, request.Path); err != nil {
		return newError(DownloadErrorCode, DownloadToFileMethod, err)
	}

	command.WriteNillableResponse(rw, nil, logger)

	logutil.Debug(logger, CommandName, DownloadToFileMethod, "success", "url", request.URL, "path", request.Path)

	return nil
}

func decode(req io.Reader, v interface{}, method string) command.Error {
	if err := json.NewDecoder(req).Decode(v); err != nil {
		logutil.Info(logger, CommandName, method, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("failed request decode : %w", err))
	}

	return nil
}

func newError(code command.Code, method string, err error) command.Error {
	switch {
	case errors.Is(err, filesystem.ErrInvalidPath):
		logutil.Debug(logger, CommandName, method, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	case errors.Is(err, filesystem.ErrNotExist):
		logutil.Debug(logger, CommandName, method, err.Error())

		return command.NewExecuteError(NotFoundErrorCode, err)
	}

	logutil.Error(logger, CommandName, method, err.Error())

	return command.NewExecuteError(code, err)
}
