package service

import (
	"encoding/json"

	"geauxclean/internal/domain"
	"geauxclean/internal/models"
)

// ApplyTaskChange is the pure reducer behind the task board's feed
// handler: (current list, event) -> new list. The subscription wiring is a
// thin adapter around it.
//
// Semantics are idempotent under replay: an insert for a known id replaces
// in place instead of duplicating, an update for an unknown id is ignored,
// a delete for an absent id is a no-op.
func ApplyTaskChange(tasks []models.AdminTask, event domain.ChangeEvent) []models.AdminTask {
	switch event.Type {
	case domain.ChangeInsert:
		task, ok := decodeTask(event.New)
		if !ok {
			return tasks
		}
		for i := range tasks {
			if tasks[i].ID == task.ID {
				out := append([]models.AdminTask(nil), tasks...)
				out[i] = task
				return out
			}
		}
		return append([]models.AdminTask{task}, tasks...)

	case domain.ChangeUpdate:
		task, ok := decodeTask(event.New)
		if !ok {
			return tasks
		}
		for i := range tasks {
			if tasks[i].ID == task.ID {
				out := append([]models.AdminTask(nil), tasks...)
				out[i] = task
				return out
			}
		}
		return tasks

	case domain.ChangeDelete:
		task, ok := decodeTask(event.Old)
		if !ok {
			return tasks
		}
		out := tasks[:0:0]
		for _, t := range tasks {
			if t.ID != task.ID {
				out = append(out, t)
			}
		}
		return out
	}
	return tasks
}

// Local writes reuse the reducer by synthesizing the event the feed would
// eventually deliver, so a replayed remote copy is a no-op.
func insertEventFor(task models.AdminTask) domain.ChangeEvent {
	raw, _ := json.Marshal(task)
	return domain.ChangeEvent{Type: domain.ChangeInsert, Table: models.TableAdminTasks, New: raw}
}

func updateEventFor(task models.AdminTask) domain.ChangeEvent {
	raw, _ := json.Marshal(task)
	return domain.ChangeEvent{Type: domain.ChangeUpdate, Table: models.TableAdminTasks, New: raw}
}

func deleteEventFor(id string) domain.ChangeEvent {
	raw, _ := json.Marshal(models.AdminTask{ID: id})
	return domain.ChangeEvent{Type: domain.ChangeDelete, Table: models.TableAdminTasks, Old: raw}
}

func decodeTask(raw json.RawMessage) (models.AdminTask, bool) {
	var task models.AdminTask
	if len(raw) == 0 {
		return task, false
	}
	if err := json.Unmarshal(raw, &task); err != nil || task.ID == "" {
		return task, false
	}
	return task, true
}
