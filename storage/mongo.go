package storage

import (
	"context"
	"fmt"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoSink writes zones, groups and connectoids into {coll}, {coll}_groups
// and {coll}_connectoids. Each write replaces the collections.
type MongoSink struct {
	client *mongo.Client
	path   *Path
}

func OpenMongo(ctx context.Context, uri string, path *Path) (*MongoSink, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri required for %s", path)
	}
	client := mongoutil.NewClient(uri)
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Infof("mongo output: %s", path)
	return &MongoSink{client: client, path: path}, nil
}

func (s *MongoSink) replace(ctx context.Context, kind string, docs []any) error {
	coll := mongoutil.GetMongoColl(s.client, s.path.Of(kind))
	if err := coll.Drop(ctx); err != nil {
		return fmt.Errorf("drop %s: %w", coll.Name(), err)
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert into %s: %w", coll.Name(), err)
	}
	log.Debugf("%d documents written to %s", len(docs), coll.Name())
	return nil
}

func (s *MongoSink) Write(ctx context.Context, e *Export) error {
	if err := s.replace(ctx, "", lo.ToAnySlice(e.Zones)); err != nil {
		return err
	}
	if err := s.replace(ctx, "groups", lo.ToAnySlice(e.Groups)); err != nil {
		return err
	}
	if err := s.replace(ctx, "connectoids", lo.ToAnySlice(e.Connectoids)); err != nil {
		return err
	}
	log.Infof("run %s written to %s", e.RunID, s.path)
	return nil
}

func (s *MongoSink) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
