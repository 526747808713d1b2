// Package httpapi serves the research refresh boundary over HTTP with gin.
//
// Routes:
//
//	POST /research/refresh         start a refresh, 202 with the task id
//	GET  /research/tasks/:task_id  task status, result and error
//	GET  /research/:topic_id       latest stored research for a topic
//	GET  /health                   liveness
//	GET  /metrics                  Prometheus exposition, when configured
package httpapi
