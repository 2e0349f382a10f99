package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/textmock/textmock-server/internal/domain/scenario"
)

const (
	// ScenarioCollectionName is the name of the scenarios collection in MongoDB
	ScenarioCollectionName = "scenarios"
)

// ScenarioRepository implements the scenario.Repository interface for MongoDB.
// Messages are stored as an ordered embedded array on the scenario document,
// not a joined collection.
type ScenarioRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewScenarioRepository creates a new MongoDB scenario repository
func NewScenarioRepository(logger *slog.Logger, db *mongo.Database) scenario.Repository {
	return &ScenarioRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new scenario document
func (r *ScenarioRepository) Create(ctx context.Context, s *scenario.Scenario) error {
	collection := r.db.Collection(ScenarioCollectionName)

	_, err := collection.InsertOne(ctx, s)
	if err != nil {
		r.logger.Error("Failed to create scenario",
			"scenario_id", s.ID.String(),
			"author_id", s.AuthorID.String(),
			"error", err)
		return fmt.Errorf("failed to create scenario: %w", err)
	}

	return nil
}

// Update replaces the content fields of an existing scenario in place.
// Returns ErrScenarioNotFound if the document doesn't exist.
func (r *ScenarioRepository) Update(ctx context.Context, s *scenario.Scenario) error {
	collection := r.db.Collection(ScenarioCollectionName)

	filter := bson.M{"scenario_id": s.ID}
	update := bson.M{
		"$set": bson.M{
			"title":            s.Title,
			"ui_settings":      s.UISettings,
			"messages":         s.Messages,
			"preview_image_id": s.PreviewImageID,
			"updated_at":       time.Now(),
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to update scenario",
			"scenario_id", s.ID.String(),
			"error", err)
		return fmt.Errorf("failed to update scenario: %w", err)
	}

	if result.MatchedCount == 0 {
		return scenario.ErrScenarioNotFound{ScenarioID: s.ID}
	}

	return nil
}

// GetByID retrieves a scenario by its ID.
// Returns ErrScenarioNotFound if no document exists.
func (r *ScenarioRepository) GetByID(ctx context.Context, id uuid.UUID) (*scenario.Scenario, error) {
	collection := r.db.Collection(ScenarioCollectionName)

	filter := bson.M{"scenario_id": id}
	var s scenario.Scenario
	err := collection.FindOne(ctx, filter).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, scenario.ErrScenarioNotFound{ScenarioID: id}
		}
		r.logger.Error("Failed to get scenario",
			"scenario_id", id.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get scenario: %w", err)
	}

	return &s, nil
}

// GetByAuthorID lists an author's scenarios, most recently updated first
func (r *ScenarioRepository) GetByAuthorID(ctx context.Context, authorID uuid.UUID) ([]*scenario.Scenario, error) {
	collection := r.db.Collection(ScenarioCollectionName)

	filter := bson.M{"author_id": authorID}
	opts := options.Find().SetSort(bson.M{"updated_at": -1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get scenarios by author",
			"author_id", authorID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get scenarios by author: %w", err)
	}
	defer cursor.Close(ctx)

	var scenarios []*scenario.Scenario
	if err := cursor.All(ctx, &scenarios); err != nil {
		r.logger.Error("Failed to decode scenarios",
			"author_id", authorID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode scenarios: %w", err)
	}

	return scenarios, nil
}

// Delete removes a scenario document. Used by the reconciler to clean up
// orphaned unpaid creates.
func (r *ScenarioRepository) Delete(ctx context.Context, id uuid.UUID) error {
	collection := r.db.Collection(ScenarioCollectionName)

	filter := bson.M{"scenario_id": id}
	result, err := collection.DeleteOne(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to delete scenario",
			"scenario_id", id.String(),
			"error", err)
		return fmt.Errorf("failed to delete scenario: %w", err)
	}

	if result.DeletedCount == 0 {
		return scenario.ErrScenarioNotFound{ScenarioID: id}
	}

	return nil
}
