package app

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-msi/pkg/msi"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Output preferences
	OutputFormat string
	Pretty       bool
	Verbose      bool
	Quiet        bool

	// Out receives command output; logs never go here
	Out    io.Writer
	Logger logrus.FieldLogger

	// Engine limits
	MaxFileSize int64
	Workers     int

	// Common timeouts
	DefaultTimeout time.Duration

	// Progress reporting
	ProgressCallback func(message string, percent int)
}

// NewContext creates a new application context writing JSON to stdout
func NewContext() *Context {
	return &Context{
		Context:        context.Background(),
		OutputFormat:   FormatJSON,
		Out:            os.Stdout,
		Logger:         logrus.StandardLogger(),
		DefaultTimeout: 5 * time.Minute,
	}
}

// WithTimeout creates a context with timeout
func (c *Context) WithTimeout(timeout time.Duration) (*Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context, timeout)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// WithCancel creates a cancellable context
func (c *Context) WithCancel() (*Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(c.Context)
	newCtx := *c
	newCtx.Context = ctx
	return &newCtx, cancel
}

// SetProgress sets the progress callback function
func (c *Context) SetProgress(callback func(string, int)) {
	c.ProgressCallback = callback
}

// Progress reports progress if callback is set
func (c *Context) Progress(message string, percent int) {
	if c.ProgressCallback != nil {
		c.ProgressCallback(message, percent)
	}
}

// Log outputs a message based on verbosity settings
func (c *Context) Log(message string) {
	if c.Quiet || c.Logger == nil {
		return
	}
	if c.Verbose {
		c.Logger.Info(message)
		return
	}
	c.Logger.Debug(message)
}

// Error outputs an error message unless quiet
func (c *Context) Error(message string) {
	if !c.Quiet && c.Logger != nil {
		c.Logger.Error(message)
	}
}

// Open opens the package at target with the context's engine limits. Failures come
// back as CommonError.
func (c *Context) Open(target PackageTarget) (*msi.Package, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	c.Log("Opening package: " + target.Path)

	opts := []msi.Option{msi.WithWorkers(c.Workers)}
	if c.Logger != nil {
		opts = append(opts, msi.WithLogger(c.Logger.WithField("package", target.Path)))
	}
	if c.MaxFileSize > 0 {
		opts = append(opts, msi.WithMaxFileSize(c.MaxFileSize))
	}
	pkg, err := msi.Open(target.Path, opts...)
	if err != nil {
		return nil, WrapEngineError("failed to open "+target.Path, err)
	}
	return pkg, nil
}
