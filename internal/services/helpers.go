package services

import (
	"errors"
	"strings"
	"time"

	"github.com/teamtrackhq/teamtrack/internal/models"
	"github.com/teamtrackhq/teamtrack/pkg/logger"
	"github.com/teamtrackhq/teamtrack/pkg/response"
	"gorm.io/gorm"
)

// transient wraps an unexpected storage error. The underlying cause is
// logged server-side and never leaks to the client.
func transient(err error) *response.AppError {
	logger.Error().Err(err).Msg("storage failure")
	return response.NewTransient("temporary storage failure, please retry")
}

// findActiveUser resolves a user id to an active account. Inactive and
// soft-deleted users are reported as absent.
func findActiveUser(db *gorm.DB, id uint) (*models.User, *response.AppError) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user not found")
		}
		return nil, transient(err)
	}
	if !user.IsActive {
		return nil, response.NewNotFound("user not found")
	}
	return &user, nil
}

// isTeamMember reports whether userID has a membership row in teamID.
func isTeamMember(db *gorm.DB, teamID, userID uint) (bool, *response.AppError) {
	var count int64
	if err := db.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count).Error; err != nil {
		return false, transient(err)
	}
	return count > 0, nil
}

// isProjectMember reports whether userID is in the project's assigned
// member set.
func isProjectMember(db *gorm.DB, projectID, userID uint) (bool, *response.AppError) {
	var count int64
	if err := db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error; err != nil {
		return false, transient(err)
	}
	return count > 0, nil
}

// loadProjectWithTeam resolves a project together with its owning team.
func loadProjectWithTeam(db *gorm.DB, id uint) (*models.Project, *response.AppError) {
	var project models.Project
	if err := db.Preload("Team").First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, transient(err)
	}
	return &project, nil
}

// normalizePage clamps pagination parameters to page ≥ 1, 1 ≤ limit ≤ 100.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// orderClause builds a safe ORDER BY from a whitelisted sort field and an
// asc/desc flag; unknown fields fall back to creation time.
func orderClause(sort, order string, allowed map[string]bool) string {
	if !allowed[sort] {
		sort = "created_at"
	}
	if order != "asc" {
		order = "desc"
	}
	return sort + " " + order
}

// parseDate accepts date-only or RFC3339 timestamps.
func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	return time.Time{}, false
}
