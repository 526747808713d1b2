package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driven"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driving"
	"github.com/custodia-labs/deepresearchpod/internal/logger"
)

// Ensure TaskRegistry implements the interface.
var _ driving.TaskRegistry = (*TaskRegistry)(nil)

// TaskRegistry stores task records and enforces the task state machine.
// Updates for one task id are expected from a single driver at a time.
type TaskRegistry struct {
	store driven.DocumentStore
	now   func() time.Time
	newID func() string
}

// NewTaskRegistry creates a registry over the given store. The store is
// normally the fallback composite so that outages demote to memory.
func NewTaskRegistry(store driven.DocumentStore) *TaskRegistry {
	return &TaskRegistry{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// CreateTask records a queued task and returns its generated id.
func (r *TaskRegistry) CreateTask(ctx context.Context, topicID, query string) (string, error) {
	if topicID == "" {
		return "", domain.ErrInvalidInput
	}

	task := domain.NewTask(r.newID(), topicID, query, r.now().UTC())
	doc, err := taskDocument(task)
	if err != nil {
		return "", err
	}
	if err := r.store.InsertOne(ctx, domain.CollectionTasks, doc); err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}

	logger.With("task_id", task.ID, "topic_id", topicID).Debugf("task queued")
	return task.ID, nil
}

// GetTask returns the task, or nil if it is not stored anywhere.
func (r *TaskRegistry) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	if taskID == "" {
		return nil, nil
	}
	doc, err := r.store.FindOne(ctx, domain.CollectionTasks, driven.Filter{driven.IDField: taskID})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}
	return documentTask(doc)
}

// UpdateTask applies update to the stored task and stamps updated_at.
//
// A task that cannot be read is upserted from the update alone, which covers
// a durable store lost after creation: the record is recreated in memory.
// Storage failures are logged, never returned.
func (r *TaskRegistry) UpdateTask(ctx context.Context, taskID string, update domain.TaskUpdate) error {
	log := logger.With("task_id", taskID, "status", update.Status)
	now := r.now().UTC()

	current, err := r.GetTask(ctx, taskID)
	if err != nil {
		log.Warnf("reading task before update: %v", err)
	}

	var set driven.Document
	if current != nil {
		if err := current.Apply(update, now); err != nil {
			log.Warnf("rejected transition from %s", current.Status)
			return err
		}
		if set, err = taskDocument(current); err != nil {
			log.Warnf("encoding task: %v", err)
			return nil
		}
	} else {
		set = partialDocument(taskID, update, now)
	}

	r.write(ctx, log, taskID, set)
	return nil
}

// AdvanceTask applies update to task and upserts the full record. task is
// modified in place and stays authoritative for its driver even when the
// write does not persist.
func (r *TaskRegistry) AdvanceTask(ctx context.Context, task *domain.Task, update domain.TaskUpdate) error {
	log := logger.With("task_id", task.ID, "status", update.Status)

	if err := task.Apply(update, r.now().UTC()); err != nil {
		log.Warnf("rejected transition from %s", task.Status)
		return err
	}
	doc, err := taskDocument(task)
	if err != nil {
		log.Warnf("encoding task: %v", err)
		return nil
	}
	r.write(ctx, log, task.ID, doc)
	return nil
}

func (r *TaskRegistry) write(ctx context.Context, log *zap.SugaredLogger, taskID string, set driven.Document) {
	err := r.store.UpdateOne(ctx, domain.CollectionTasks, driven.Filter{driven.IDField: taskID}, set, true)
	if err != nil {
		log.Warnf("task update not persisted: %v", err)
	}
}

// taskDocument encodes a task with its id as the document key. Result and
// error are always present so merges clear the field a terminal status excludes.
func taskDocument(task *domain.Task) (driven.Document, error) {
	raw, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	var doc driven.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode task: %w", err)
	}
	doc[driven.IDField] = task.ID
	return doc, nil
}

func partialDocument(taskID string, update domain.TaskUpdate, now time.Time) driven.Document {
	doc := driven.Document{
		driven.IDField: taskID,
		"task_id":      taskID,
		"updated_at":   now.Format(time.RFC3339Nano),
	}
	if update.Status != "" {
		doc["status"] = string(update.Status)
	}
	switch update.Status {
	case domain.TaskComplete:
		if update.Result != nil {
			if res, err := toValue(update.Result); err == nil {
				doc["result"] = res
			}
		}
		doc["error"] = ""
	case domain.TaskError:
		doc["result"] = nil
		doc["error"] = update.Error
	}
	return doc
}

func documentTask(doc driven.Document) (*domain.Task, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	var task domain.Task
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	if task.ID == "" {
		task.ID = doc.ID()
	}
	return &task, nil
}

// toValue converts v into its JSON-compatible generic form.
func toValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
