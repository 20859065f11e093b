package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/tasktracker/internal/domain"
	"github.com/locvowork/tasktracker/internal/export"
	"github.com/locvowork/tasktracker/internal/logger"
	"github.com/locvowork/tasktracker/internal/service"
	"github.com/locvowork/tasktracker/internal/service/serviceutils"
)

type TaskHandler struct {
	svc      service.TaskService
	exporter *export.TaskExporter
}

func NewTaskHandler(svc service.TaskService, exporter *export.TaskExporter) *TaskHandler {
	return &TaskHandler{svc: svc, exporter: exporter}
}

func (h *TaskHandler) CreateHandler(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var in domain.TaskInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	task, err := h.svc.CreateTask(c.Request().Context(), user.ID, in)
	if err != nil {
		return err
	}
	return serviceutils.ResponseSuccess(c, http.StatusCreated, "Task created successfully", task)
}

func (h *TaskHandler) ListHandler(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	tasks, err := h.svc.ListTasks(c.Request().Context(), user.ID, page)
	if err != nil {
		return err
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "", tasks)
}

func (h *TaskHandler) ListByStatusHandler(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	completed, err := strconv.ParseBool(c.Param("completed"))
	if err != nil {
		return domain.Validation("completed must be a boolean")
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	tasks, err := h.svc.ListTasksByStatus(c.Request().Context(), user.ID, completed, page)
	if err != nil {
		return err
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "", tasks)
}

func (h *TaskHandler) GetHandler(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	task, err := h.svc.GetTask(c.Request().Context(), user.ID, taskID)
	if err != nil {
		return err
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "", task)
}

// UpdateHandler serves both PUT and PATCH; absent fields are left unchanged.
func (h *TaskHandler) UpdateHandler(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var patch domain.TaskPatch
	if err := bindJSON(c, &patch); err != nil {
		return err
	}
	task, err := h.svc.UpdateTask(c.Request().Context(), user.ID, taskID, patch)
	if err != nil {
		return err
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Task updated successfully", task)
}

func (h *TaskHandler) DeleteHandler(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteTask(c.Request().Context(), user.ID, taskID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *TaskHandler) CreateSubtaskHandler(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var in domain.SubtaskInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	subtask, err := h.svc.CreateSubtask(c.Request().Context(), user.ID, taskID, in)
	if err != nil {
		return err
	}
	return serviceutils.ResponseSuccess(c, http.StatusCreated, "Subtask created successfully", subtask)
}

type subtaskStatusRequest struct {
	Completed *bool `json:"completed"`
}

// UpdateSubtaskHandler reads the new status from the "completed" query
// parameter, falling back to a JSON body.
func (h *TaskHandler) UpdateSubtaskHandler(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	subtaskID, err := pathID(c, "subtask_id")
	if err != nil {
		return err
	}

	var completed bool
	if raw := c.QueryParam("completed"); raw != "" {
		completed, err = strconv.ParseBool(raw)
		if err != nil {
			return domain.Validation("completed must be a boolean")
		}
	} else {
		var req subtaskStatusRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		if req.Completed == nil {
			return domain.Validation("completed is required")
		}
		completed = *req.Completed
	}

	subtask, err := h.svc.UpdateSubtaskStatus(c.Request().Context(), user.ID, taskID, subtaskID, completed)
	if err != nil {
		return err
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Subtask updated successfully", subtask)
}

func (h *TaskHandler) DeleteSubtaskHandler(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	taskID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	subtaskID, err := pathID(c, "subtask_id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteSubtask(c.Request().Context(), user.ID, taskID, subtaskID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ExportHandler downloads every task of the caller, with subtasks, as XLSX.
func (h *TaskHandler) ExportHandler(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	var tasks []domain.Task
	page := domain.Page{Limit: domain.MaxPageLimit}
	for {
		batch, err := h.svc.ListTasks(ctx, user.ID, page)
		if err != nil {
			return err
		}
		tasks = append(tasks, batch...)
		if len(batch) < page.Limit {
			break
		}
		page.Skip += page.Limit
	}

	var buf bytes.Buffer
	if err := h.exporter.Write(&buf, tasks); err != nil {
		return domain.Internal("export tasks", err)
	}
	logger.InfoLog(ctx, "exported %d tasks for user %d", len(tasks), user.ID)

	filename := fmt.Sprintf("tasks_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, export.ContentType, buf.Bytes())
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		return 0, domain.Validation("%s must be an integer", name)
	}
	return id, nil
}

func pageParams(c echo.Context) (domain.Page, error) {
	var page domain.Page
	err := echo.QueryParamsBinder(c).
		Int("skip", &page.Skip).
		Int("limit", &page.Limit).
		BindError()
	if err != nil {
		return domain.Page{}, domain.Validation("skip and limit must be integers")
	}
	return page, nil
}
