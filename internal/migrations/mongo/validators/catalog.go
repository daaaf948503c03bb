package validators

import "go.mongodb.org/mongo-driver/bson"

var SetupValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"region_id",
			"active",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"region_id": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 60,
			},

			"name": bson.M{
				"bsonType":  "string",
				"maxLength": 100,
			},

			"active": bson.M{
				"bsonType": "bool",
			},
		},
	},
}

var OperatorValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"region_id",
			"name",
			"email",
			"active",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"region_id": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 60,
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"email": bson.M{
				"bsonType": "string",
				"pattern":  `^[^@\s]+@[^@\s]+\.[^@\s]+$`,
			},

			"active": bson.M{
				"bsonType": "bool",
			},

			"unavailable_dates": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
					"pattern":  `^\d{4}-\d{2}-\d{2}$`,
				},
			},

			"available_dates": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "string",
					"pattern":  `^\d{4}-\d{2}-\d{2}$`,
				},
			},
		},
	},
}
