package redis

import (
	"context"
	"errors"
	"strconv"

	"github.com/kailas-cloud/ragchat/internal/db"
)

// CreateIndex creates an FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

func buildCreateArgs(idx *db.IndexDefinition) ([]string, error) {
	if idx.Name == "" {
		return nil, errors.New("index name is required")
	}
	if idx.Prefix == "" {
		return nil, errors.New("index prefix is required")
	}
	if idx.VectorField == "" {
		return nil, errors.New("vector field is required")
	}
	if idx.Dimensions <= 0 {
		return nil, errors.New("vector dimensions must be positive")
	}

	args := []string{
		idx.Name,
		"ON", "HASH",
		"PREFIX", "1", idx.Prefix,
		"SCHEMA",
	}

	for _, f := range idx.Fields {
		switch f.Type {
		case "TAG", "TEXT":
			args = append(args, f.Name, f.Type)
		default:
			return nil, errors.New("unsupported field type " + f.Type)
		}
	}

	args = append(args,
		idx.VectorField, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(idx.Dimensions),
		"DISTANCE_METRIC", "COSINE",
		"M", strconv.Itoa(orDefault(idx.HNSWM, 32)),
		"EF_CONSTRUCTION", strconv.Itoa(orDefault(idx.HNSWEFConstruct, 400)),
	)

	return args, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
