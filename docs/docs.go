// Package docs holds the OpenAPI document served under /swagger.
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
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Service health",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "ok or degraded"},
                    "503": {"description": "vendor store unreachable"}
                }
            }
        },
        "/health/services": {
            "get": {
                "tags": ["Health"],
                "summary": "Per-service degradation levels and circuit breakers",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/auth/token": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange demo credentials for a bearer token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{
                    "in": "body",
                    "name": "credentials",
                    "required": true,
                    "schema": {"$ref": "#/definitions/TokenRequest"}
                }],
                "responses": {
                    "200": {"description": "token issued"},
                    "401": {"description": "invalid credentials"},
                    "403": {"description": "demo mode disabled"}
                }
            }
        },
        "/api/vendors": {
            "get": {
                "tags": ["Vendors"],
                "summary": "List vendors",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "query", "in": "query"},
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "string", "name": "industry", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "vendor page"}}
            },
            "post": {
                "tags": ["Vendors"],
                "summary": "Create a vendor",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "responses": {
                    "201": {"description": "created"},
                    "400": {"description": "invalid vendor"}
                }
            }
        },
        "/api/vendors/{id}": {
            "get": {
                "tags": ["Vendors"],
                "summary": "Vendor detail with records, reviews, risks and audit trail",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}
            },
            "patch": {
                "tags": ["Vendors"],
                "summary": "Partially update a vendor",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}
            },
            "delete": {
                "tags": ["Vendors"],
                "summary": "Delete a vendor",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "not found"}}
            }
        },
        "/api/vendors/score": {
            "post": {
                "tags": ["Scoring"],
                "summary": "Score a vendor and persist the result",
                "parameters": [{
                    "in": "body",
                    "name": "request",
                    "required": true,
                    "schema": {"$ref": "#/definitions/VendorIDRequest"}
                }],
                "responses": {
                    "200": {"description": "scores, risk indicators and explainability"},
                    "400": {"description": "vendorId missing"},
                    "404": {"description": "vendor not found"}
                }
            }
        },
        "/api/recommend": {
            "post": {
                "tags": ["Recommendation"],
                "summary": "Rank vendors against a free-text requirement",
                "parameters": [{
                    "in": "body",
                    "name": "request",
                    "required": true,
                    "schema": {"$ref": "#/definitions/RecommendRequest"}
                }],
                "responses": {
                    "200": {"description": "ranked vendors with comparison matrix"},
                    "400": {"description": "requirement missing"},
                    "503": {"description": "vendor store unavailable"}
                }
            }
        },
        "/api/ml/predict": {
            "post": {
                "tags": ["Prediction"],
                "summary": "Predict one vendor score, falling back locally",
                "parameters": [{
                    "in": "body",
                    "name": "request",
                    "required": true,
                    "schema": {"$ref": "#/definitions/VendorIDRequest"}
                }],
                "responses": {"200": {"description": "prediction"}}
            }
        },
        "/api/ml/batch": {
            "post": {
                "tags": ["Prediction"],
                "summary": "Predict up to 100 vendors in one call",
                "responses": {"200": {"description": "per-vendor results"}}
            }
        },
        "/api/ml/health": {
            "get": {
                "tags": ["Prediction"],
                "summary": "Prediction service reachability",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/admin/services/{name}": {
            "delete": {
                "tags": ["Admin"],
                "summary": "Reset a service's degradation counters",
                "parameters": [{"type": "string", "name": "name", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "service health after reset"},
                    "403": {"description": "admin only"},
                    "404": {"description": "unknown service"}
                }
            }
        },
        "/api/audit-logs": {
            "get": {
                "tags": ["Audit"],
                "summary": "List audit entries",
                "parameters": [
                    {"type": "string", "name": "userId", "in": "query"},
                    {"type": "string", "name": "vendorId", "in": "query"},
                    {"type": "string", "name": "action", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "403": {"description": "admin only"}}
            },
            "post": {
                "tags": ["Audit"],
                "summary": "Record an audit entry",
                "responses": {"201": {"description": "created"}, "400": {"description": "invalid entry"}}
            }
        }
    },
    "definitions": {
        "TokenRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "VendorIDRequest": {
            "type": "object",
            "properties": {"vendorId": {"type": "string"}}
        },
        "RecommendRequest": {
            "type": "object",
            "properties": {
                "requirement": {"type": "string"},
                "category": {"type": "string"},
                "maxResults": {"type": "integer"},
                "minScore": {"type": "number"},
                "liveScoring": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Vendor Scoring API",
	Description:      "Scores vendors from their performance records, reviews, capabilities and risks, and recommends the best matches for a requirement.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
