package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"nodosml-recsys/internal/config"
	"nodosml-recsys/internal/logging"
)

var mongoClient *mongo.Client
var mongoDB *mongo.Database

func InitMongo(cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logging.Fatal().Err(err).Msg("[mongo] error conectando")
	}

	if err := client.Ping(ctx, nil); err != nil {
		logging.Fatal().Err(err).Msg("[mongo] ping falló")
	}

	mongoClient = client
	mongoDB = client.Database(cfg.MongoDB)

	if err := ensureIndexes(ctx, mongoDB); err != nil {
		logging.Fatal().Err(err).Msg("[mongo] error creando índices")
	}
	logging.Info().Str("db", cfg.MongoDB).Msg("[mongo] conectado")
}

// ensureIndexes: un rating por (userId, movieId); el resto acelera las
// lecturas del snapshot y del historial.
func ensureIndexes(ctx context.Context, d *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		"ratings": {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "movieId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "movieId", Value: 1}}},
		},
		"users": {
			{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		},
		"movies": {
			{Keys: bson.D{{Key: "movieId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"recommendations": {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}
	for coll, models := range specs {
		if _, err := d.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func Client() *mongo.Client {
	return mongoClient
}

func DB() *mongo.Database {
	return mongoDB
}

func Close(ctx context.Context) error {
	if mongoClient == nil {
		return nil
	}
	return mongoClient.Disconnect(ctx)
}
