// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HandleHealth reports liveness and whether a model backend is configured.
func HandleHealth(backend string) gin.HandlerFunc {
	return func(c *gin.Context) {
		aiStatus := "configured"
		if backend == "" {
			aiStatus = "fallback_only"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ai": aiStatus, "backend": backend})
	}
}

// HandleRoot answers the bare service URL.
func HandleRoot() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "AI Test Case Generator API")
	}
}
