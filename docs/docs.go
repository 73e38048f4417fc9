// Package docs registers the OpenAPI description served at /swagger.
// Regenerate with: swag init -g internal/http/router.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/donors": {
            "post": {
                "tags": ["Donors"],
                "summary": "Register a donor",
                "operationId": "registerDonor",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterDonorRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.DonorProfile"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/donors/{id}": {
            "get": {
                "tags": ["Donors"],
                "summary": "Get a donor",
                "operationId": "getDonor",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.DonorProfile"}},
                    "404": {"description": "Donor not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/requests": {
            "post": {
                "tags": ["Requests"],
                "summary": "Post a blood request",
                "operationId": "createRequest",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "X-Actor-ID", "in": "header"},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateRequestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.BloodRequest"}},
                    "400": {"description": "Validation failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/requests/{id}": {
            "get": {
                "tags": ["Requests"],
                "summary": "Get a blood request",
                "operationId": "getRequest",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.BloodRequest"}},
                    "404": {"description": "Request not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/requests/{id}/cancel": {
            "post": {
                "tags": ["Requests"],
                "summary": "Cancel a blood request",
                "operationId": "cancelRequest",
                "produces": ["application/json"],
                "parameters": [{"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.BloodRequest"}},
                    "409": {"description": "Request already closed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/requests/{id}/matches": {
            "get": {
                "tags": ["Matching"],
                "summary": "Rank candidate donors",
                "operationId": "findMatches",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"type": "boolean", "name": "include_ineligible", "in": "query"},
                    {"minimum": 1, "type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.MatchCandidate"}}},
                    "404": {"description": "Request not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/requests/{id}/dispatch": {
            "post": {
                "tags": ["Matching"],
                "summary": "Notify selected donors",
                "operationId": "dispatchNotifications",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.DispatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.DispatchResult"}},
                    "409": {"description": "Request closed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "No notification could be created", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/requests/{id}/responses": {
            "get": {
                "tags": ["Responses"],
                "summary": "List donor responses (paginated)",
                "operationId": "listResponses",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "If-None-Match", "in": "header"},
                    {"minimum": 1, "type": "integer", "default": 1, "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListResponsesResponse"}, "headers": {"ETag": {"type": "string"}}},
                    "304": {"description": "Not Modified"}
                }
            },
            "post": {
                "tags": ["Responses"],
                "summary": "Record a donor response",
                "operationId": "respond",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RespondRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.RespondResult"}},
                    "409": {"description": "Request closed or invalid transition", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/notifications/actions": {
            "post": {
                "tags": ["Responses"],
                "summary": "Handle a push alert action",
                "operationId": "notificationAction",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.NotificationActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.RespondResult"}},
                    "204": {"description": "No Content"}
                }
            }
        },
        "/events/donors/{id}": {
            "get": {
                "tags": ["Events"],
                "summary": "Stream emergency requests to a donor",
                "operationId": "donorEvents",
                "produces": ["text/event-stream"],
                "parameters": [{"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "event stream"}}
            }
        },
        "/events/requesters/{id}": {
            "get": {
                "tags": ["Events"],
                "summary": "Stream donor responses to a requester",
                "operationId": "requesterEvents",
                "produces": ["text/event-stream"],
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "event stream"}}
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string"}
            }
        },
        "handlers.RegisterDonorRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "blood_type": {"type": "string", "example": "O-"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "is_available": {"type": "boolean"},
                "availability_radius_km": {"type": "number"},
                "last_donation_date": {"type": "string"},
                "last_emergency_response_date": {"type": "string"},
                "medical_conditions": {"type": "string"}
            }
        },
        "handlers.CreateRequestRequest": {
            "type": "object",
            "properties": {
                "requester_id": {"type": "string"},
                "facility_name": {"type": "string"},
                "blood_type": {"type": "string", "example": "A+"},
                "urgency": {"type": "string", "enum": ["critical", "urgent", "normal", "low"]},
                "units_needed": {"type": "integer"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "search_radius_km": {"type": "number"},
                "notes": {"type": "string"},
                "needed_by": {"type": "string"}
            }
        },
        "handlers.DispatchRequest": {
            "type": "object",
            "properties": {"donor_ids": {"type": "array", "items": {"type": "string"}}}
        },
        "handlers.RespondRequest": {
            "type": "object",
            "properties": {
                "donor_id": {"type": "string"},
                "status": {"type": "string", "enum": ["pending", "accepted", "declined"]},
                "message": {"type": "string"}
            }
        },
        "handlers.NotificationActionRequest": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "donor_id": {"type": "string"},
                "action": {"type": "string", "enum": ["accept", "decline", "view"]}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "handlers.ListResponsesResponse": {
            "type": "object",
            "properties": {
                "responses": {"type": "array", "items": {"$ref": "#/definitions/domain.DonorResponse"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "domain.BloodRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "requester_id": {"type": "string"},
                "facility_name": {"type": "string"},
                "blood_type": {"type": "string"},
                "urgency": {"type": "string"},
                "units_needed": {"type": "integer"},
                "status": {"type": "string", "enum": ["pending", "active", "fulfilled", "cancelled"]},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "search_radius_km": {"type": "number"},
                "notes": {"type": "string"},
                "needed_by": {"type": "string"},
                "fulfilled_at": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.DonorProfile": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "blood_type": {"type": "string"},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "is_available": {"type": "boolean"},
                "last_donation_date": {"type": "string"},
                "last_emergency_response_date": {"type": "string"},
                "medical_conditions": {"type": "string"},
                "availability_radius_km": {"type": "number"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.DonorResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "request_id": {"type": "string"},
                "donor_id": {"type": "string"},
                "status": {"type": "string", "enum": ["notified", "pending", "accepted", "declined", "cancelled"]},
                "message": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Eligibility": {
            "type": "object",
            "properties": {
                "eligible": {"type": "boolean"},
                "reasons": {"type": "array", "items": {"type": "string"}}
            }
        },
        "domain.MatchCandidate": {
            "type": "object",
            "properties": {
                "donor": {"$ref": "#/definitions/domain.DonorProfile"},
                "distance_km": {"type": "number"},
                "travel_minutes": {"type": "integer"},
                "priority_score": {"type": "number"},
                "eligibility": {"$ref": "#/definitions/domain.Eligibility"}
            }
        },
        "domain.ItemFailure": {
            "type": "object",
            "properties": {"donor_id": {"type": "string"}, "message": {"type": "string"}}
        },
        "domain.Connection": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "request_id": {"type": "string"},
                "donor_id": {"type": "string"},
                "requester_id": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "domain.Donation": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "donor_id": {"type": "string"},
                "request_id": {"type": "string"},
                "blood_type": {"type": "string"},
                "volume_ml": {"type": "integer"},
                "status": {"type": "string"},
                "donated_at": {"type": "string"}
            }
        },
        "services.DispatchResult": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "status": {"type": "string"},
                "notifications": {"type": "array", "items": {"$ref": "#/definitions/domain.DonorResponse"}},
                "failures": {"type": "array", "items": {"$ref": "#/definitions/domain.ItemFailure"}}
            }
        },
        "services.RespondResult": {
            "type": "object",
            "properties": {
                "response": {"$ref": "#/definitions/domain.DonorResponse"},
                "request": {"$ref": "#/definitions/domain.BloodRequest"},
                "connection": {"$ref": "#/definitions/domain.Connection"},
                "donation": {"$ref": "#/definitions/domain.Donation"},
                "changed": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "BloodLink API",
	Description:      "Blood donor matching and emergency notification engine.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
