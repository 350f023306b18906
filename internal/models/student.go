package models

// Student is a learner enrolled in a project.
type Student struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	Email      string `db:"email" json:"email"`
	Grade      int    `db:"grade" json:"grade"`
	ProjectKey string `db:"project_key" json:"projectKey"`
}
