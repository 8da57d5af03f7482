// SPDX-FileCopyrightText: containeredge contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the logr.Logger facade used throughout this
// repository, backed by klog — the same pairing the teacher uses across
// its pkg/dnsman2 tree.
package logging

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/go-logr/logr"
	"k8s.io/klog/v2"
)

// New returns a logr.Logger backed by klog, with its verbosity set from
// level (DDNS_LOG_LEVEL, §6.3). level follows klog's convention: 0 is
// default/info, higher values are increasingly verbose debug output.
func New(level int) (logr.Logger, error) {
	if level < 0 {
		return logr.Logger{}, fmt.Errorf("log level must be >= 0, got %d", level)
	}

	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)
	if err := fs.Set("v", strconv.Itoa(level)); err != nil {
		return logr.Logger{}, fmt.Errorf("set klog verbosity: %w", err)
	}

	return klog.NewKlogr(), nil
}
