package validators

import "go.mongodb.org/mongo-driver/bson"

var ApplicationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"session_id",
			"operator_id",
			"status",
			"applied_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"session_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"operator_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"accepted",
					"rejected",
				},
			},

			"applied_at": bson.M{
				"bsonType": "date",
			},

			"responded_at": bson.M{
				"bsonType": "date",
			},

			"rejection_reason": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},
		},
	},
}

var BookingLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"expires_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
