package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Classroom Reservation API",
        "description": "Room reservation and scheduling service with key cabinet integration",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Rooms", "description": "Room inventory and key state"},
        {"name": "Schedules", "description": "Reservation requests and lifecycle"},
        {"name": "Calendar", "description": "Calendar feed and exports"},
        {"name": "Keys", "description": "Key cabinet ingestion"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/rooms": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List rooms",
                "parameters": [
                    {"name": "active", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rooms/{id}": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Get room detail with key state",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/schedules": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List schedules",
                "parameters": [
                    {"name": "room_id", "in": "query", "type": "string"},
                    {"name": "requester_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Schedules"],
                "summary": "Book a slot directly as approved (admin)",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Schedule conflict"}
                }
            }
        },
        "/schedules/requests": {
            "post": {
                "tags": ["Schedules"],
                "summary": "File a reservation request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Schedule conflict"}
                }
            }
        },
        "/schedules/search": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Free-text schedule search",
                "parameters": [
                    {"name": "q", "in": "query", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/calendar": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Calendar feed of approved schedules",
                "parameters": [
                    {"name": "room_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/export": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Export schedules as CSV or PDF (admin)",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string"},
                    {"name": "room_id", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/schedules/export/download": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Fetch a previously exported file via a signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/schedules/pending": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List pending requests competing for one slot (admin)",
                "parameters": [
                    {"name": "room_id", "in": "query", "required": true, "type": "string"},
                    {"name": "start", "in": "query", "required": true, "type": "string"},
                    {"name": "end", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get schedule detail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/schedules/{id}/approve": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Approve a pending schedule (admin)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApproveScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition or conflict"}
                }
            }
        },
        "/schedules/{id}/reject": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Reject a pending schedule (admin)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/schedules/{id}/complete": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Mark an approved schedule as completed (admin)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/schedules/{id}/cancel": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Cancel a schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/schedules/{id}/override": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Request a one-off override of a recurring template slot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OverrideScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot already claimed"}
                }
            }
        },
        "/schedules/bulk/weekdays": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Generate recurring slots on selected weekdays (admin)",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkWeekdayRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Batch conflicts"}
                }
            }
        },
        "/schedules/bulk/pattern": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Generate recurring slots at a fixed frequency (admin)",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkPatternRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Batch conflicts"}
                }
            }
        },
        "/iot/keys/status": {
            "post": {
                "tags": ["Keys"],
                "summary": "Report a key state change from the cabinet",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/KeyStatusUpdate"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Missing or wrong API key"},
                    "404": {"description": "Unknown slot"}
                }
            }
        }
    },
    "definitions": {
        "CreateScheduleRequest": {
            "type": "object",
            "properties": {
                "room_id": {"type": "string"},
                "subject": {"type": "string"},
                "program_year_section": {"type": "string"},
                "instructor": {"type": "string"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "duration_minutes": {"type": "integer"},
                "remarks": {"type": "string"}
            },
            "required": ["subject", "start_time"]
        },
        "ApproveScheduleRequest": {
            "type": "object",
            "properties": {
                "room_id": {"type": "string"},
                "remarks": {"type": "string"}
            }
        },
        "RejectScheduleRequest": {
            "type": "object",
            "properties": {
                "remarks": {"type": "string"}
            },
            "required": ["remarks"]
        },
        "OverrideScheduleRequest": {
            "type": "object",
            "properties": {
                "subject": {"type": "string"},
                "program_year_section": {"type": "string"},
                "instructor": {"type": "string"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "remarks": {"type": "string"}
            },
            "required": ["subject", "start_time", "end_time"]
        },
        "BulkWeekdayRequest": {
            "type": "object",
            "properties": {
                "room_id": {"type": "string"},
                "subject": {"type": "string"},
                "program_year_section": {"type": "string"},
                "instructor": {"type": "string"},
                "range_start": {"type": "string", "format": "date-time"},
                "range_end": {"type": "string", "format": "date-time"},
                "day_start": {"type": "string", "format": "date-time"},
                "day_end": {"type": "string", "format": "date-time"},
                "duration_minutes": {"type": "integer"},
                "weekdays": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["room_id", "subject", "range_start", "range_end", "day_start", "weekdays"]
        },
        "BulkPatternRequest": {
            "type": "object",
            "properties": {
                "room_id": {"type": "string"},
                "subject": {"type": "string"},
                "program_year_section": {"type": "string"},
                "instructor": {"type": "string"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "frequency": {"type": "string", "enum": ["daily", "weekly", "monthly"]},
                "duration_minutes": {"type": "integer"},
                "count": {"type": "integer"},
                "until": {"type": "string", "format": "date-time"}
            },
            "required": ["room_id", "subject", "start_time", "frequency"]
        },
        "KeyStatusUpdate": {
            "type": "object",
            "properties": {
                "slot_number": {"type": "integer"},
                "status": {"type": "string", "enum": ["USED", "STORED", "DISABLED"]}
            },
            "required": ["slot_number", "status"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
