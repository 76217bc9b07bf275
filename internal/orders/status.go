package orders

import "errors"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func ToStatus(s string) (Status, error) {
	status := Status(s)
	if _, ok := validNext[status]; !ok {
		return "", errors.New("invalid order status")
	}
	return status, nil
}
