package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "DutyWatch API",
        "description": "Crew schedule dashboard backed by an iCloud CalDAV calendar",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Schedule", "description": "Built pairing/off row table"},
        {"name": "Calendar", "description": "Raw calendar views and diagnostics"},
        {"name": "Export", "description": "Downloadable table exports"}
    ],
    "paths": {
        "/schedule/table": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Get the built schedule table",
                "parameters": [
                    {"name": "force", "in": "query", "type": "boolean", "description": "Force a calendar pull before building"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "CalDAV upstream failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/refresh": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Pull the calendar now",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "CalDAV upstream failure", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rows/{key}/hide": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Hide a row from the table",
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            },
            "delete": {
                "tags": ["Schedule"],
                "summary": "Unhide a row",
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/calendar/upcoming": {
            "get": {
                "tags": ["Calendar"],
                "summary": "Next raw calendar entries",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer", "description": "Maximum entries (default 20)"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/calendar/debug": {
            "get": {
                "tags": ["Calendar"],
                "summary": "CalDAV discovery diagnostics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/schedule": {
            "get": {
                "tags": ["Export"],
                "summary": "Export the schedule table",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "description": "csv or pdf (default csv)"}
                ],
                "responses": {
                    "200": {"description": "File attachment"},
                    "400": {"description": "Unknown format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ScheduleTable": {
            "type": "object",
            "properties": {
                "hash": {"type": "string"},
                "rows": {"type": "array", "items": {"type": "object"}},
                "hidden_rows": {"type": "integer"},
                "generated_at_utc": {"type": "string"},
                "last_pull_utc": {"type": "string"},
                "next_run_utc": {"type": "string"},
                "refresh_minutes": {"type": "integer"},
                "from_cache": {"type": "boolean"}
            }
        },
        "RefreshResult": {
            "type": "object",
            "properties": {
                "hash": {"type": "string"},
                "changed": {"type": "boolean"},
                "event_count": {"type": "integer"},
                "last_pull_utc": {"type": "string"},
                "next_run_utc": {"type": "string"}
            }
        },
        "UpcomingEvent": {
            "type": "object",
            "properties": {
                "uid": {"type": "string"},
                "summary": {"type": "string"},
                "calendar": {"type": "string"},
                "start_utc": {"type": "string"},
                "end_utc": {"type": "string"}
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
