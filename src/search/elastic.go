// Package search mirrors the cafe table into an Elasticsearch index used for
// location lookups.
package search

import (
	"CafeAPI/src/logging"
	"CafeAPI/src/types"
	"context"
	_ "embed"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/olivere/elastic/v7"
)

//go:embed schema.json
var schema string

type ElasticIndex struct {
	Client *elastic.Client
	Index  string
}

func NewElasticIndex(url, index string, options ...elastic.ClientOptionFunc) (*ElasticIndex, error) {
	opts := append([]elastic.ClientOptionFunc{
		elastic.SetURL(url),
		elastic.SetSniff(false),
	}, options...)

	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create elastic client: %w", err)
	}
	return &ElasticIndex{Client: client, Index: index}, nil
}

func (es *ElasticIndex) Stop() {
	es.Client.Stop()
}

// CreateIndexWithMapping creates the index with the embedded mapping unless
// it already exists.
func (es *ElasticIndex) CreateIndexWithMapping(ctx context.Context) error {
	exists, err := es.Client.IndexExists(es.Index).Do(ctx)
	if err != nil {
		return fmt.Errorf("check index %s: %w", es.Index, err)
	}
	if exists {
		logging.Debug().Str("index", es.Index).Msg("Index already exists")
		return nil
	}

	createIndex, err := es.Client.CreateIndex(es.Index).BodyString(schema).Do(ctx)
	if err != nil {
		return fmt.Errorf("create index %s: %w", es.Index, err)
	}
	if !createIndex.Acknowledged {
		logging.Warn().Str("index", es.Index).Msg("CreateIndex was not acknowledged")
	}

	logging.Info().Str("index", es.Index).Msg("Index created")
	return nil
}

// Reindex drops the index and rebuilds it from cafes in one bulk request.
func (es *ElasticIndex) Reindex(ctx context.Context, cafes []types.Cafe) error {
	exists, err := es.Client.IndexExists(es.Index).Do(ctx)
	if err != nil {
		return fmt.Errorf("check index %s: %w", es.Index, err)
	}
	if exists {
		if _, err = es.Client.DeleteIndex(es.Index).Do(ctx); err != nil {
			return fmt.Errorf("drop index %s: %w", es.Index, err)
		}
	}
	if err = es.CreateIndexWithMapping(ctx); err != nil {
		return err
	}
	if len(cafes) == 0 {
		return nil
	}

	bulkRequest := es.Client.Bulk().Index(es.Index).Refresh("true")
	for _, cafe := range cafes {
		req := elastic.NewBulkIndexRequest().Id(docID(cafe.ID)).Doc(cafe)
		bulkRequest = bulkRequest.Add(req)
	}

	bulkResponse, err := bulkRequest.Do(ctx)
	if err != nil {
		return fmt.Errorf("bulk index: %w", err)
	}

	failed := bulkResponse.Failed()
	for _, item := range failed {
		if item.Error != nil {
			logging.Warn().Str("id", item.Id).Str("reason", item.Error.Reason).Msg("Failed to index cafe")
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("bulk index: %d of %d documents failed", len(failed), len(cafes))
	}

	logging.Info().Int("cafes", len(cafes)).Str("index", es.Index).Msg("Index rebuilt")
	return nil
}

func (es *ElasticIndex) Put(ctx context.Context, cafe types.Cafe) error {
	_, err := es.Client.Index().
		Index(es.Index).
		Id(docID(cafe.ID)).
		BodyJson(cafe).
		Refresh("true").
		Do(ctx)
	if err != nil {
		return fmt.Errorf("index cafe %d: %w", cafe.ID, err)
	}
	return nil
}

func (es *ElasticIndex) Remove(ctx context.Context, id int64) error {
	_, err := es.Client.Delete().
		Index(es.Index).
		Id(docID(id)).
		Refresh("true").
		Do(ctx)
	if err != nil && !elastic.IsNotFound(err) {
		return fmt.Errorf("remove cafe %d: %w", id, err)
	}
	return nil
}

// FindByLocation returns the lowest-id cafe with an exact location match.
func (es *ElasticIndex) FindByLocation(ctx context.Context, location string) (types.Cafe, error) {
	searchResult, err := es.Client.Search().
		Index(es.Index).
		Query(elastic.NewTermQuery("location", location)).
		Sort("id", true).
		Size(1).
		Do(ctx)
	if err != nil {
		return types.Cafe{}, fmt.Errorf("search location: %w", err)
	}

	if searchResult.Hits == nil || len(searchResult.Hits.Hits) == 0 {
		return types.Cafe{}, types.ErrNotFound
	}

	var cafe types.Cafe
	if err = json.Unmarshal(searchResult.Hits.Hits[0].Source, &cafe); err != nil {
		return types.Cafe{}, fmt.Errorf("decode hit: %w", err)
	}
	return cafe, nil
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}
