package pipeline

import (
	"github.com/foomo/sitepress/pkg/errs"
	"github.com/pkg/errors"
)

// resolutionError keeps configuration errors raised inside template
// functions classified as such
func resolutionError(err error) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return &errs.Error{Kind: e.Kind, Path: e.Path, Err: err}
	}
	return errs.Configuration("%s", err)
}
