// SPDX-License-Identifier: Unlicense OR MIT

//go:build !android

package log

import "github.com/sirupsen/logrus"

func formatter() logrus.Formatter {
	return &logrus.TextFormatter{FullTimestamp: true}
}
