package network

import (
	"errors"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "network")

var (
	// 错误：位置不在link内部
	ErrNotInteriorLocation = errors.New("location is not an interior point of the link")
	// 错误：link不属于该layer
	ErrUnknownLink = errors.New("link does not belong to the layer")
)
