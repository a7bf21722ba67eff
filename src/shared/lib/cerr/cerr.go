package cerr

import (
	"fmt"
	"sort"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
)

// F is a shorthand for attaching several fields at once.
type F map[string]interface{}

func Error(msg string) error {
	return Context{}.Error(msg)
}

func Wrap(err error) Wrapper {
	return Context{}.Wrap(err)
}

func Field(key string, value interface{}) Context {
	return Context{}.Field(key, value)
}

func Fields(fields F) Context {
	return Context{}.Fields(fields)
}

// Log reports an error that is being swallowed rather than returned.
func Log(err error) {
	logger := log.WithError(err)
	for _, detail := range errors.GetAllDetails(err) {
		logger = logger.WithField("detail", detail)
	}

	logger.Error("Error occurred")
}

// Context carries structured fields into an error about to be created or
// wrapped. Fields ride along as error details so they survive wrapping and
// show up in logs.
type Context struct {
	fields F
}

func (c Context) Field(key string, value interface{}) Context {
	return c.Fields(F{key: value})
}

func (c Context) Fields(fields F) Context {
	merged := F{}
	for key, value := range c.fields {
		merged[key] = value
	}
	for key, value := range fields {
		merged[key] = value
	}

	return Context{fields: merged}
}

func (c Context) Error(msg string) error {
	return c.decorate(errors.NewWithDepth(1, msg))
}

func (c Context) Wrap(err error) Wrapper {
	return Wrapper{
		inner:   err,
		context: c,
	}
}

func (c Context) decorate(err error) error {
	keys := make([]string, 0, len(c.fields))
	for key := range c.fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		err = errors.WithDetail(err, fmt.Sprintf("%s: %+v", key, c.fields[key]))
	}

	return err
}

type Wrapper struct {
	inner   error
	context Context
}

func (w Wrapper) Error(msg string) error {
	return w.context.decorate(errors.WrapWithDepth(1, w.inner, msg))
}
