// Package authz is the single decision surface for every permission check
// in the system. All functions are pure: they consume an actor and already
// resolved target entities/relations, return a plain boolean and never
// touch storage. Callers translate false into a permission-denied error.
//
// Relation facts that require a registry lookup (project membership,
// participant-of-project) are resolved by the calling service and passed
// in as booleans, keeping every (role, operation, relation) combination
// unit-testable without a database.
package authz

import "github.com/teamtrackhq/teamtrack/internal/models"

// actorValid reports whether the actor exists and is active. An inactive
// user is treated as non-existent by every check.
func actorValid(actor *models.User) bool {
	return actor != nil && actor.IsActive
}

// CanManageUsers grants global user administration.
func CanManageUsers(actor *models.User) bool {
	return actorValid(actor) && actor.Role == models.RoleAdmin
}

// CanManageTeams grants team creation and deletion.
func CanManageTeams(actor *models.User) bool {
	return actorValid(actor) && actor.Role == models.RoleAdmin
}

// CanLeadTeam grants team-scoped management: membership changes, team
// updates, project creation under the team.
func CanLeadTeam(actor *models.User, team *models.Team) bool {
	if !actorValid(actor) || team == nil {
		return false
	}
	return actor.Role == models.RoleAdmin || actor.ID == team.LeaderID
}

// CanManageProject grants project-scoped management: updates, member
// changes, task creation, deletion. team is the project's owning team.
func CanManageProject(actor *models.User, project *models.Project, team *models.Team) bool {
	if !actorValid(actor) || project == nil {
		return false
	}
	if actor.Role == models.RoleAdmin || actor.ID == project.ManagerID {
		return true
	}
	return team != nil && actor.ID == team.LeaderID
}

// CanAccessProject grants read access. assigned reports whether the actor
// is in the project's assigned-member set.
func CanAccessProject(actor *models.User, project *models.Project, team *models.Team, assigned bool) bool {
	if CanManageProject(actor, project, team) {
		return true
	}
	return actorValid(actor) && assigned
}

// CanModifyTask grants task mutation: updates, progress records, deletion.
func CanModifyTask(actor *models.User, task *models.Task, project *models.Project, team *models.Team) bool {
	if !actorValid(actor) || task == nil {
		return false
	}
	if actor.Role == models.RoleAdmin || actor.ID == task.AssigneeID || actor.ID == task.CreatorID {
		return true
	}
	return CanManageProject(actor, project, team)
}

// CanAccessTask grants read access and commenting. participant reports
// whether the actor is an assigned or managing member of the task's
// project.
func CanAccessTask(actor *models.User, task *models.Task, project *models.Project, team *models.Team, participant bool) bool {
	if CanModifyTask(actor, task, project, team) {
		return true
	}
	return actorValid(actor) && participant
}
