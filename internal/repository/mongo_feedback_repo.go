package repository

import (
	"context"
	"regexp"
	"time"

	"feedbackboard-backend/internal/database"
	"feedbackboard-backend/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoFeedbackRepo stores the vote set embedded in the feedback document
// (a voters string array plus an upvotes counter kept in the same atomic
// update). Atomicity of the toggle is delegated to per-document updates
// guarded by a membership condition in the filter.
type MongoFeedbackRepo struct {
	collection *mongo.Collection
}

// feedbackDoc is the persisted shape; models.Feedback is the API shape.
type feedbackDoc struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Title       string        `bson:"title"`
	Description string        `bson:"description"`
	Category    string        `bson:"category"`
	Upvotes     int           `bson:"upvotes"`
	Voters      []string      `bson:"voters"`
	CreatedAt   time.Time     `bson:"created_at"`
}

func (d *feedbackDoc) toModel() models.Feedback {
	return models.Feedback{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		// Derived from the voter set, not the counter, so a response can
		// never disagree with the membership state it was read with.
		UpvoteCount: len(d.Voters),
		CreatedAt:   d.CreatedAt,
	}
}

func NewMongoFeedbackRepo() *MongoFeedbackRepo {
	return &MongoFeedbackRepo{
		collection: database.GetCollection("feedbacks"),
	}
}

func (r *MongoFeedbackRepo) Create(ctx context.Context, input CreateFeedbackInput) (*models.Feedback, error) {
	doc := &feedbackDoc{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Upvotes:     0,
		Voters:      []string{},
		CreatedAt:   time.Now(),
	}
	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	doc.ID = result.InsertedID.(bson.ObjectID)
	feedback := doc.toModel()
	return &feedback, nil
}

func (r *MongoFeedbackRepo) List(ctx context.Context, opts ListOptions) ([]models.Feedback, error) {
	cursor, err := r.collection.Find(ctx, buildListFilter(opts),
		options.Find().SetSort(buildListSort(opts.Sort)))
	if err != nil {
		return nil, err
	}
	var docs []feedbackDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	feedbacks := make([]models.Feedback, 0, len(docs))
	for i := range docs {
		feedbacks = append(feedbacks, docs[i].toModel())
	}
	return feedbacks, nil
}

// buildListFilter translates ListOptions into a Mongo filter: exact
// category match (absent or "all" disables it) and a case-insensitive
// substring match against title or description.
func buildListFilter(opts ListOptions) bson.M {
	filter := bson.M{}
	if opts.Category != "" && opts.Category != CategoryAll {
		filter["category"] = opts.Category
	}
	if opts.Search != "" {
		// Quote the input so regex metacharacters match as literal text;
		// search is a substring match, not a pattern language.
		pattern := regexp.QuoteMeta(opts.Search)
		filter["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	return filter
}

func buildListSort(sort string) bson.D {
	if sort == SortUpvotes {
		return bson.D{{Key: "upvotes", Value: -1}}
	}
	return bson.D{{Key: "created_at", Value: -1}}
}

// toggleAttempts bounds the retry loop in ToggleUpvote. Both branches of
// the toggle are conditional on current membership, so a concurrent toggle
// on the same pair can make both miss in one pass; retrying re-reads the
// flipped state.
const toggleAttempts = 3

func (r *MongoFeedbackRepo) ToggleUpvote(ctx context.Context, id, voterIdentifier string) (*ToggleResult, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	for attempt := 0; attempt < toggleAttempts; attempt++ {
		// Add branch: only matches while the voter is absent, so the
		// membership check and the write are one atomic document update.
		var updated feedbackDoc
		err = r.collection.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, "voters": bson.M{"$ne": voterIdentifier}},
			bson.M{
				"$addToSet": bson.M{"voters": voterIdentifier},
				"$inc":      bson.M{"upvotes": 1},
			},
			after,
		).Decode(&updated)
		if err == nil {
			return &ToggleResult{NewCount: len(updated.Voters), Direction: DirectionAdded}, nil
		}
		if err != mongo.ErrNoDocuments {
			return nil, err
		}

		// Remove branch: only matches while the voter is present.
		err = r.collection.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, "voters": voterIdentifier},
			bson.M{
				"$pull": bson.M{"voters": voterIdentifier},
				"$inc":  bson.M{"upvotes": -1},
			},
			after,
		).Decode(&updated)
		if err == nil {
			return &ToggleResult{NewCount: len(updated.Voters), Direction: DirectionRemoved}, nil
		}
		if err != mongo.ErrNoDocuments {
			return nil, err
		}

		// Neither branch matched: the item is gone, or a concurrent
		// toggle flipped membership between the two updates.
		err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Err()
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
	}
	return nil, ErrAlreadyVoted
}

// EnsureIndexes creates the indexes backing list filtering and sorting.
func (r *MongoFeedbackRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "upvotes", Value: -1}},
		},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}
