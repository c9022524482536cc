package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rackcentre/incident-logger/internal/core/domain"
	"github.com/rackcentre/incident-logger/internal/core/ports"
)

const incidentsCollection = "incidents"

// IncidentRepository implements ports.IncidentRepository against the
// incidents collection.
type IncidentRepository struct {
	coll *mongo.Collection
}

func NewIncidentRepository(db *mongo.Database) *IncidentRepository {
	return &IncidentRepository{coll: db.Collection(incidentsCollection)}
}

type incidentDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"user_id"`
	Reporter    domain.Reporter    `bson:"reporter"`
	Title       string             `bson:"title,omitempty"`
	Description string             `bson:"description"`
	Date        time.Time          `bson:"date"`
	Type        string             `bson:"type"`
	Impact      string             `bson:"impact"`
	File        string             `bson:"file,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func toDoc(inc *domain.Incident) incidentDoc {
	return incidentDoc{
		UserID:      inc.UserID,
		Reporter:    inc.Reporter,
		Title:       inc.Title,
		Description: inc.Description,
		Date:        inc.Date,
		Type:        string(inc.Type),
		Impact:      string(inc.Impact),
		File:        inc.File,
		CreatedAt:   inc.CreatedAt,
		UpdatedAt:   inc.UpdatedAt,
	}
}

func (d *incidentDoc) toDomain() *domain.Incident {
	return &domain.Incident{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		Reporter:    d.Reporter,
		Title:       d.Title,
		Description: d.Description,
		Date:        d.Date,
		Type:        domain.IncidentType(d.Type),
		Impact:      domain.ImpactLevel(d.Impact),
		File:        d.File,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// buildQuery translates the conjunctive filter into a bson document. The
// search term is quoted before being handed to $regex so user input can
// never change the query's meaning.
func buildQuery(f ports.IncidentFilter) bson.M {
	q := bson.M{}
	if f.UserID != "" {
		q["user_id"] = f.UserID
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}
	if f.Type != "" {
		q["type"] = f.Type
	}
	if f.Impact != "" {
		q["impact"] = f.Impact
	}
	dateRange := bson.M{}
	if !f.DateFrom.IsZero() {
		dateRange["$gte"] = f.DateFrom
	}
	if !f.DateTo.IsZero() {
		dateRange["$lte"] = f.DateTo
	}
	if len(dateRange) > 0 {
		q["date"] = dateRange
	}
	return q
}

func (r *IncidentRepository) Insert(ctx context.Context, inc *domain.Incident) (*domain.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.InsertOne(ctx, toDoc(inc))
	if err != nil {
		return nil, fmt.Errorf("insert incident: %w", err)
	}

	created := *inc
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &created, nil
}

func (r *IncidentRepository) FindByID(ctx context.Context, id string) (*domain.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrIncidentNotFound
	}

	var doc incidentDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("find incident: %w", err)
	}
	return doc.toDomain(), nil
}

// Find returns one slice of the filtered, sorted collection. Sorting by
// impact goes through an aggregation pipeline that ranks the enum by its
// position in the severity order; every other key sorts directly, with _id
// as the tiebreaker so pages are stable.
func (r *IncidentRepository) Find(ctx context.Context, filter ports.IncidentFilter, sort ports.IncidentSort, skip, limit int64) ([]*domain.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if sort.Field == "impact" {
		return r.findByImpactRank(ctx, filter, sort.Descending, skip, limit)
	}

	dir := 1
	if sort.Descending {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: sort.Field, Value: dir}, {Key: "_id", Value: 1}}).
		SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := r.coll.Find(ctx, buildQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find incidents: %w", err)
	}
	defer cur.Close(ctx)

	return decodeAll(ctx, cur)
}

func (r *IncidentRepository) findByImpactRank(ctx context.Context, filter ports.IncidentFilter, descending bool, skip, limit int64) ([]*domain.Incident, error) {
	levels := bson.A{}
	for _, l := range domain.ImpactLevels {
		levels = append(levels, string(l))
	}

	dir := 1
	if descending {
		dir = -1
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildQuery(filter)}},
		{{Key: "$addFields", Value: bson.M{
			"impact_rank": bson.M{"$indexOfArray": bson.A{levels, "$impact"}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "impact_rank", Value: dir}, {Key: "_id", Value: 1}}}},
		{{Key: "$skip", Value: skip}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("find incidents by impact: %w", err)
	}
	defer cur.Close(ctx)

	return decodeAll(ctx, cur)
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]*domain.Incident, error) {
	var out []*domain.Incident
	for cur.Next(ctx) {
		var doc incidentDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode incident: %w", err)
		}
		out = append(out, doc.toDomain())
	}
	return out, cur.Err()
}

func (r *IncidentRepository) Count(ctx context.Context, filter ports.IncidentFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, buildQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("count incidents: %w", err)
	}
	return n, nil
}

func (r *IncidentRepository) AggregateGroupCount(ctx context.Context, filter ports.IncidentFilter, groupField string) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildQuery(filter)}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$" + groupField,
			"count": bson.M{"$sum": 1},
		}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("group incidents by %s: %w", groupField, err)
	}
	defer cur.Close(ctx)

	groups := make(map[string]int64)
	for cur.Next(ctx) {
		var row struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode group row: %w", err)
		}
		groups[row.ID] = row.Count
	}
	return groups, cur.Err()
}

func (r *IncidentRepository) CountCreatedSince(ctx context.Context, filter ports.IncidentFilter, since time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	q := buildQuery(filter)
	q["created_at"] = bson.M{"$gte": since}

	n, err := r.coll.CountDocuments(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("count recent incidents: %w", err)
	}
	return n, nil
}

func (r *IncidentRepository) UpdateByID(ctx context.Context, id string, inc *domain.Incident) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrIncidentNotFound
	}

	update := bson.M{"$set": bson.M{
		"title":       inc.Title,
		"description": inc.Description,
		"date":        inc.Date,
		"type":        string(inc.Type),
		"impact":      string(inc.Impact),
		"file":        inc.File,
		"updated_at":  inc.UpdatedAt,
	}}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrIncidentNotFound
	}
	return nil
}

func (r *IncidentRepository) DeleteByID(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrIncidentNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrIncidentNotFound
	}
	return nil
}

// EnsureIndexes creates the indexes the list and stats queries lean on.
func (r *IncidentRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "impact", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
