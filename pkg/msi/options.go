package msi

import (
	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-msi/internal/services"
)

type options struct {
	logger      logrus.FieldLogger
	workers     int
	maxFileSize int64
}

// Option configures how a package is opened
type Option func(*options)

// WithLogger routes diagnostics and debug output to logger. By default nothing is logged.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) { o.logger = logger }
}

// WithWorkers bounds how many tables decode in parallel. Values below 1 use one
// worker per CPU.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithMaxFileSize caps the size of files accepted by Open
func WithMaxFileSize(bytes int64) Option {
	return func(o *options) { o.maxFileSize = bytes }
}

func collectOptions(opts []Option) options {
	o := options{maxFileSize: services.DefaultMaxFileSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
