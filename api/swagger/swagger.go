package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Fees API",
        "description": "Fee computation, payment recording and collection reporting",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Fees", "description": "Payments, statements and receipts"},
        {"name": "Reports", "description": "Term and daily collection reports"},
        {"name": "Adjustments", "description": "Opening balances and corrections"},
        {"name": "ExtraPrices", "description": "Scoped prices for extra charges"},
        {"name": "Diagnostics", "description": "Data quality checks"},
        {"name": "Admin", "description": "Destructive maintenance"}
    ],
    "paths": {
        "/fees": {
            "post": {
                "tags": ["Fees"],
                "summary": "Record a fee payment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordPaymentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload or amount", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Class fee not set for the period", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/statement/{studentId}": {
            "get": {
                "tags": ["Fees"],
                "summary": "Student fee statement for a period",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "year", "in": "query", "required": true, "type": "integer"},
                    {"name": "term", "in": "query", "required": true, "type": "string", "enum": ["Term1", "Term2", "Term3"]},
                    {"name": "previousClass", "in": "query", "type": "string"},
                    {"name": "demand", "in": "query", "type": "array", "items": {"type": "string"}, "collectionFormat": "csv"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Class fee not set for the period", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/by-student/{id}": {
            "get": {
                "tags": ["Fees"],
                "summary": "List a student's payments",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "term", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/fees/receipt-by-number/{no}": {
            "get": {
                "tags": ["Fees"],
                "summary": "Reprint a receipt",
                "parameters": [{"name": "no", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/{id}": {
            "patch": {
                "tags": ["Fees"],
                "summary": "Edit a payment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EditPaymentRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/fees/{id}/void": {
            "post": {
                "tags": ["Fees"],
                "summary": "Void a payment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VoidPaymentRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already voided", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/term-summary": {
            "get": {
                "tags": ["Reports"],
                "summary": "Collection summary for a term",
                "parameters": [
                    {"name": "year", "in": "query", "required": true, "type": "integer"},
                    {"name": "term", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/fees/term-summary/refresh": {
            "post": {
                "tags": ["Reports"],
                "summary": "Recompute the cached term summary",
                "parameters": [
                    {"name": "year", "in": "query", "required": true, "type": "integer"},
                    {"name": "term", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Refreshed inline", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/daily": {
            "get": {
                "tags": ["Reports"],
                "summary": "Daily collections per payment method",
                "parameters": [{"name": "date", "in": "query", "type": "string", "format": "date"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/fees/daily/details": {
            "get": {
                "tags": ["Reports"],
                "summary": "Payments received on a day",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "format": "date"},
                    {"name": "method", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/fees/debug/missing-classes": {
            "get": {
                "tags": ["Diagnostics"],
                "summary": "Student classes without a class fee",
                "parameters": [
                    {"name": "year", "in": "query", "required": true, "type": "integer"},
                    {"name": "term", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/fees/admin/wipe": {
            "delete": {
                "tags": ["Admin"],
                "summary": "Wipe ledger records",
                "parameters": [
                    {"name": "confirm", "in": "query", "required": true, "type": "string"},
                    {"name": "scope", "in": "query", "type": "string", "enum": ["payments", "adjustments", "all"]},
                    {"name": "dryRun", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Confirmation missing", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/adjustments": {
            "get": {
                "tags": ["Adjustments"],
                "summary": "List adjustments",
                "parameters": [
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "term", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Adjustments"],
                "summary": "Record an opening balance or adjustment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAdjustmentRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/extraprices": {
            "get": {
                "tags": ["ExtraPrices"],
                "summary": "List extra prices",
                "parameters": [
                    {"name": "key", "in": "query", "type": "string"},
                    {"name": "class", "in": "query", "type": "string"},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "term", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["ExtraPrices"],
                "summary": "Create or replace an extra price",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertExtraPriceRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "RecordPaymentRequest": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "amountPaid": {"type": "number"},
                "paymentMethod": {"type": "string", "enum": ["CASH", "M-Pesa", "PAYBILL", "TILL", "TOWER SACCO"]},
                "year": {"type": "integer"},
                "term": {"type": "string", "enum": ["Term1", "Term2", "Term3"]},
                "datePaid": {"type": "string"},
                "category": {"type": "string"},
                "previousClass": {"type": "string"},
                "demand": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["studentId", "amountPaid", "paymentMethod", "year", "term"]
        },
        "VoidPaymentRequest": {
            "type": "object",
            "properties": {"reason": {"type": "string"}},
            "required": ["reason"]
        },
        "EditPaymentRequest": {
            "type": "object",
            "properties": {
                "amountPaid": {"type": "number"},
                "paymentMethod": {"type": "string"},
                "datePaid": {"type": "string"},
                "category": {"type": "string"},
                "reason": {"type": "string"}
            },
            "required": ["reason"]
        },
        "CreateAdjustmentRequest": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "year": {"type": "integer"},
                "term": {"type": "string"},
                "type": {"type": "string", "enum": ["OPENING", "ADJUSTMENT"]},
                "amount": {"type": "number"},
                "note": {"type": "string"}
            },
            "required": ["studentId", "year", "term", "type", "amount"]
        },
        "UpsertExtraPriceRequest": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "class": {"type": "string"},
                "year": {"type": "integer"},
                "term": {"type": "string"},
                "amount": {"type": "number"},
                "isActive": {"type": "boolean"}
            },
            "required": ["key", "class", "amount"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
