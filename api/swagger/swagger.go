package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "University Timesheet API",
        "description": "Casual academic timesheet approval and pay calculation service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and session management"},
        {"name": "Timesheets", "description": "Timesheet lifecycle and pay calculation"},
        {"name": "Approvals", "description": "Workflow actions and queues"},
        {"name": "Payroll", "description": "Payroll register exports"}
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Tokens issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "Tokens rotated"},
                    "401": {"description": "Token expired or revoked"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke refresh token",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Logged out"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user info",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "User info"}
                }
            }
        },
        "/timesheets": {
            "get": {
                "tags": ["Timesheets"],
                "summary": "List timesheets scoped to the caller's role",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "tutorId", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Timesheet page", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Timesheets"],
                "summary": "Create draft timesheet with server-computed pay",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTimesheetRequest"}}
                ],
                "responses": {
                    "201": {"description": "Draft created"},
                    "400": {"description": "Invalid schedule, hours or task type"},
                    "403": {"description": "Not permitted"}
                }
            }
        },
        "/timesheets/quote": {
            "post": {
                "tags": ["Timesheets"],
                "summary": "Preview a pay calculation without persisting",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Pay breakdown"},
                    "400": {"description": "Invalid input"}
                }
            }
        },
        "/timesheets/config": {
            "get": {
                "tags": ["Timesheets"],
                "summary": "Validation bounds and task metadata",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Configuration"}
                }
            }
        },
        "/timesheets/{id}": {
            "get": {
                "tags": ["Timesheets"],
                "summary": "Get timesheet",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Timesheet"},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Timesheets"],
                "summary": "Edit an editable timesheet; pay is recomputed",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Updated"},
                    "409": {"description": "Not editable or concurrent modification"}
                }
            },
            "delete": {
                "tags": ["Timesheets"],
                "summary": "Delete a draft owned by the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Not a draft"}
                }
            }
        },
        "/timesheets/{id}/actions": {
            "get": {
                "tags": ["Approvals"],
                "summary": "Actions currently defined for the timesheet's status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Action list"}
                }
            },
            "post": {
                "tags": ["Approvals"],
                "summary": "Apply a workflow action",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApprovalActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Transition committed"},
                    "403": {"description": "Role or ownership check failed"},
                    "409": {"description": "Illegal transition or concurrent modification"}
                }
            }
        },
        "/timesheets/{id}/history": {
            "get": {
                "tags": ["Approvals"],
                "summary": "Approval trail in commit order",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "History entries"}
                }
            }
        },
        "/approvals/pending": {
            "get": {
                "tags": ["Approvals"],
                "summary": "Timesheets awaiting the caller's decision",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Pending queue"}
                }
            }
        },
        "/payroll/exports": {
            "post": {
                "tags": ["Payroll"],
                "summary": "Queue a payroll register export",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "202": {"description": "Job accepted"},
                    "403": {"description": "Admin only"}
                }
            }
        },
        "/payroll/exports/{id}": {
            "get": {
                "tags": ["Payroll"],
                "summary": "Export job status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Job status"},
                    "404": {"description": "Unknown job"}
                }
            }
        },
        "/payroll/export/{token}": {
            "get": {
                "tags": ["Payroll"],
                "summary": "Download a generated register by signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreateTimesheetRequest": {
            "type": "object",
            "required": ["tutorId", "courseId", "weekStartDate", "sessionDate", "taskType", "deliveryHours"],
            "properties": {
                "tutorId": {"type": "string"},
                "courseId": {"type": "string"},
                "weekStartDate": {"type": "string", "format": "date"},
                "sessionDate": {"type": "string", "format": "date"},
                "taskType": {"type": "string", "enum": ["TUTORIAL", "LECTURE", "DEMO", "MARKING", "ORAA", "CONSULTATION"]},
                "deliveryHours": {"type": "number"},
                "isRepeat": {"type": "boolean"},
                "qualification": {"type": "string", "enum": ["STANDARD", "PHD", "COORDINATOR"]},
                "description": {"type": "string"}
            }
        },
        "ApprovalActionRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["SUBMIT_FOR_APPROVAL", "TUTOR_CONFIRM", "LECTURER_CONFIRM", "HR_CONFIRM", "REJECT", "REQUEST_MODIFICATION"]},
                "comment": {"type": "string"}
            }
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
