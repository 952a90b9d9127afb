package converter

import (
	"errors"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "converter")

var (
	// 错误：可识别的键，无法识别或矛盾的值
	ErrTaggingAmbiguity = errors.New("ambiguous public transport tagging")
	// 错误：关系成员或几何所需节点未加载
	ErrMissingReference = errors.New("referenced entity not available")
	// 错误：坐标不足以构建几何
	ErrGeometryIncomplete = errors.New("insufficient coordinates for geometry")
	// 错误：转换开始前网络未构建
	ErrPreconditionViolation = errors.New("network graph not populated before conversion")
)

// errorKind names the error class for metrics labels.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrTaggingAmbiguity):
		return "tagging_ambiguity"
	case errors.Is(err, ErrMissingReference):
		return "missing_reference"
	case errors.Is(err, ErrGeometryIncomplete):
		return "geometry_incomplete"
	default:
		return "other"
	}
}
