package validators

import "go.mongodb.org/mongo-driver/bson"

var ListingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"title", "price"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":         bson.M{"bsonType": "objectId"},
			"title":       bson.M{"bsonType": "string", "minLength": 1},
			"description": bson.M{"bsonType": "string"},
			"price":       bson.M{"bsonType": "number", "minimum": 0},
			"capacity":    bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"total_rooms": bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"location":    bson.M{"bsonType": "string"},
			"country":     bson.M{"bsonType": "string"},
			"coordinates": bson.M{
				"bsonType": "array",
				"maxItems": 2,
				"items":    bson.M{"bsonType": "double"},
			},
		},
	},
}
