package repository

import (
	"errors"

	"github.com/yukikurage/kanban-board-api/internal/models"
	"github.com/yukikurage/kanban-board-api/internal/ordering"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrColumnMismatch is returned when a move targets a column on a
	// different board than the task's current one.
	ErrColumnMismatch = errors.New("task repository: target column belongs to a different board")
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db        *gorm.DB
	taskOrder ordering.List
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{
		db:        db,
		taskOrder: ordering.NewList(&models.Task{}, "column_id"),
	}
}

// Create appends a task to its column's list. Position assignment and the
// insert share one transaction so concurrent creates in the same column
// each get a distinct slot.
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		pos, err := r.taskOrder.Append(tx, task.ColumnID)
		if err != nil {
			return err
		}
		task.Position = pos
		return tx.Create(task).Error
	})
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// ListByColumn lists a column's tasks in position order
func (r *GormTaskRepository) ListByColumn(columnID uint64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.Where("column_id = ?", columnID).
		Order("position").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update writes a task's editable fields. Column and position belong to
// Move; writing them here would revert a move committed after the caller
// read the task.
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Model(task).
		Select("title", "description", "priority", "deadline").
		Updates(task).Error
}

// Delete removes a task, closes the position gap it leaves and cascades to
// comments, responsible links and file records.
func (r *GormTaskRepository) Delete(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskResponsible{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.TaskFile{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Task{}, task.ID).Error; err != nil {
			return err
		}
		return r.taskOrder.Remove(tx, task.ColumnID, task.Position)
	})
}

// Move repositions a task within or across columns in a single
// transaction. The moved row is locked first, so two concurrent moves of
// the same task serialize instead of interleaving their position updates.
// The returned task carries the committed column and position.
func (r *GormTaskRepository) Move(taskID, targetColumnID uint64, position int) (*models.Task, error) {
	var moved models.Task
	err := r.db.Transaction(func(tx *gorm.DB) error {
		query := tx
		if tx.Dialector.Name() != "sqlite" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var task models.Task
		if err := query.First(&task, taskID).Error; err != nil {
			return err
		}

		var source, target models.Column
		if err := tx.First(&source, task.ColumnID).Error; err != nil {
			return err
		}
		if err := tx.First(&target, targetColumnID).Error; err != nil {
			return err
		}
		if source.BoardID != target.BoardID {
			return ErrColumnMismatch
		}

		_, err := r.taskOrder.Reposition(tx, task.ID, task.ColumnID, task.Position, targetColumnID, position)
		if err != nil {
			return err
		}

		// Re-read what was actually written so the response reflects the
		// persisted state, not the pre-transaction values.
		return tx.First(&moved, taskID).Error
	})
	if err != nil {
		return nil, err
	}
	return &moved, nil
}

// AddResponsible links a user as responsible for a task
func (r *GormTaskRepository) AddResponsible(taskID, userID uint64) error {
	return r.db.Create(&models.TaskResponsible{
		TaskID: taskID,
		UserID: userID,
	}).Error
}

// RemoveResponsible removes a responsible link
func (r *GormTaskRepository) RemoveResponsible(taskID, userID uint64) error {
	return r.db.Where("task_id = ? AND user_id = ?", taskID, userID).
		Delete(&models.TaskResponsible{}).Error
}

// FindResponsible finds a specific responsible link
func (r *GormTaskRepository) FindResponsible(taskID, userID uint64) (*models.TaskResponsible, error) {
	var link models.TaskResponsible
	if err := r.db.Where("task_id = ? AND user_id = ?", taskID, userID).
		First(&link).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

// AddComment appends a comment to a task
func (r *GormTaskRepository) AddComment(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// ListComments lists a task's comments oldest first
func (r *GormTaskRepository) ListComments(taskID uint64) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.Preload("User").
		Where("task_id = ?", taskID).
		Order("created_at").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// AddFile records an uploaded task attachment
func (r *GormTaskRepository) AddFile(file *models.TaskFile) error {
	return r.db.Create(file).Error
}

// ListFiles lists a task's attachments
func (r *GormTaskRepository) ListFiles(taskID uint64) ([]models.TaskFile, error) {
	var files []models.TaskFile
	if err := r.db.Where("task_id = ?", taskID).
		Order("uploaded_at").
		Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

// FindFile finds an attachment by ID
func (r *GormTaskRepository) FindFile(id uint64) (*models.TaskFile, error) {
	var file models.TaskFile
	if err := r.db.First(&file, id).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

// DeleteFile removes an attachment record
func (r *GormTaskRepository) DeleteFile(id uint64) error {
	return r.db.Delete(&models.TaskFile{}, id).Error
}
