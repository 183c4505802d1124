/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	model2 "github.com/cadencehq/cadence/api/model"
)

// QueueRecordEvent accepts a record-created trigger for a row inserted outside the API.
// The event is processed by the workers; duplicates for the same record collapse.
func (a Api) QueueRecordEvent(c *gin.Context) {
	var newEvent model2.RecordEvent
	if err := c.ShouldBindJSON(&newEvent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	err := newEvent.ValidateRecordEvent()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	event := newEvent.ToRecordEvent()
	if err := a.cadence.Queue().EnqueueEvent(c.Request.Context(), event); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, event)
}

// QueueTick accepts a clock trigger. A tick without a time is stamped with the current time
// in the schedule timezone.
func (a Api) QueueTick(c *gin.Context) {
	var newTick model2.Tick
	if err := c.ShouldBindJSON(&newTick); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	err := newTick.ValidateTick()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	tick, err := newTick.ToTick()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := a.cadence.Queue().EnqueueTick(c.Request.Context(), tick); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, tick)
}
