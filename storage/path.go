package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "storage")

var ErrInvalidPath = errors.New("output path is neither a file nor {db}.{coll}")

// Path is an output location: a SQLite file or a MongoDB collection prefix.
type Path struct {
	File string
	DB   string
	Coll string
}

// NewPath parses {fspath} or {db}.{coll}. An empty string gives nil.
func NewPath(filePathOrColl string) (*Path, error) {
	s := strings.TrimSpace(filePathOrColl)
	if s == "" {
		return nil, nil
	}
	// 已存在的文件或.db后缀视为SQLite文件
	if _, err := os.Stat(s); err == nil || strings.HasSuffix(s, ".db") || strings.ContainsRune(s, os.PathSeparator) {
		return &Path{File: s}, nil
	}
	splitted := strings.Split(s, ".")
	if len(splitted) != 2 || splitted[0] == "" || splitted[1] == "" {
		return nil, fmt.Errorf("%s: %w", s, ErrInvalidPath)
	}
	return &Path{DB: splitted[0], Coll: splitted[1]}, nil
}

func (p *Path) GetDb() string {
	return p.DB
}

func (p *Path) GetColl() string {
	return p.Coll
}

func (p *Path) IsFile() bool {
	return p.File != ""
}

// Collection returns the collection name of one record kind, e.g. stops_groups.
func (p *Path) Collection(kind string) string {
	if kind == "" {
		return p.Coll
	}
	return p.Coll + "_" + kind
}

// Of returns the path of the collection holding one record kind.
func (p *Path) Of(kind string) *Path {
	return &Path{DB: p.DB, Coll: p.Collection(kind)}
}

func (p *Path) String() string {
	if p.IsFile() {
		path, err := filepath.Abs(p.File)
		if err != nil {
			return p.File
		}
		return path
	}
	return p.DB + "." + p.Coll
}
