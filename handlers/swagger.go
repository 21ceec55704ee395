package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the web app.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		// the UI bundle is served from unpkg
		c.Header("Content-Security-Policy", "default-src 'self' https://unpkg.com; style-src 'self' https://unpkg.com 'unsafe-inline'; script-src 'self' https://unpkg.com 'unsafe-inline'")
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>secrets - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "secrets", "version": "v0.1.0" },
  "components": {
    "schemas": {
      "Credentials": { "type": "object", "required": ["username", "password"], "properties": { "username": { "type": "string", "maxLength": 64 }, "password": { "type": "string", "maxLength": 72 } } }
    }
  },
  "paths": {
    "/": { "get": { "summary": "Landing page", "responses": { "200": { "description": "HTML page" } } } },
    "/register": {
      "get": { "summary": "Registration form", "parameters": [{ "name": "error", "in": "query", "schema": { "type": "string", "enum": ["duplicate", "invalid", "unavailable"] } }], "responses": { "200": { "description": "HTML form" } } },
      "post": { "summary": "Create a local account and log in", "requestBody": { "content": { "application/x-www-form-urlencoded": { "schema": { "$ref": "#/components/schemas/Credentials" } } } }, "responses": { "303": { "description": "/secrets on success, /register?error=<code> on failure" }, "429": { "description": "rate limited" } } }
    },
    "/login": {
      "get": { "summary": "Login form", "parameters": [{ "name": "error", "in": "query", "schema": { "type": "string", "enum": ["invalid", "unavailable", "oauth"] } }], "responses": { "200": { "description": "HTML form" } } },
      "post": { "summary": "Log in with username and password", "requestBody": { "content": { "application/x-www-form-urlencoded": { "schema": { "$ref": "#/components/schemas/Credentials" } } } }, "responses": { "303": { "description": "/secrets on success, /login?error=invalid on failure" }, "429": { "description": "rate limited" } } }
    },
    "/secrets": { "get": { "summary": "Gated page", "responses": { "200": { "description": "secret content" }, "302": { "description": "redirect to /login without a session" } } } },
    "/logout": { "get": { "summary": "Destroy the session", "responses": { "302": { "description": "redirect to /" } } } },
    "/auth/google": { "get": { "summary": "Start Google sign-in", "responses": { "302": { "description": "redirect to the consent page" } } } },
    "/auth/google/secrets": { "get": { "summary": "Google OAuth callback", "parameters": [{ "name": "code", "in": "query", "schema": { "type": "string" } }, { "name": "state", "in": "query", "schema": { "type": "string" } }, { "name": "error", "in": "query", "schema": { "type": "string" } }], "responses": { "302": { "description": "/secrets on success, /login?error=oauth on failure" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition" } } } }
  }
}`
