package model

// User is the signed-in employee.
type User struct {
	EmployeeID string `json:"employeeId"`
	Name       string `json:"name"`
	IsLoggedIn bool   `json:"isLoggedIn"`
}
