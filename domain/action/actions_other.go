//go:build !windows

package action

// Platform has no input backend outside Windows.
func Platform() (Actuator, KeyState, error) {
	return nil, nil, ErrUnavailable
}
