// Copyright 2020 Nokia
// Licensed under the BSD 3-Clause License.
// SPDX-License-Identifier: BSD-3-Clause

package utils

import (
	"fmt"
	"os"

	errs "github.com/sdargoeuves/automate-cisco-sdwan-lab/errors"
)

func FileExists(filename string) bool {
	f, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return !f.IsDir()
}

// ReadFileContent reads a file and returns its content or an error that wraps
// ErrFileNotFound when the path does not exist.
func ReadFileContent(file string) ([]byte, error) {
	if !FileExists(file) {
		return nil, fmt.Errorf("%w: %s", errs.ErrFileNotFound, file)
	}
	return os.ReadFile(file)
}
