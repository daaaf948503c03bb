package validators

import "go.mongodb.org/mongo-driver/bson"

var SessionValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"client_id",
			"region_id",
			"status",
			"participants",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"client_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"region_id": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 60,
			},

			// Legacy documents carry scheduled_date instead; neither field
			// is individually required.
			"date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"scheduled_date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending_confirmation",
					"confirmed",
					"cancelled",
				},
			},

			"module_ids": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"participants": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  200,
			},

			"setup_ids": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"setup_id": bson.M{
				"bsonType": "string",
			},

			"min_operators": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  50,
			},

			"max_operators": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  50,
			},

			"marketplace_visible": bson.M{
				"bsonType": "bool",
			},

			"accepted_operator_ids": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"confirmed_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
