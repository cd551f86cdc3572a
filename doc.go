// Package hexapod drives a six-legged robot from a handheld radio controller.
//
// The controller samples two joysticks and three buttons and transmits them
// over an nRF24 link. The robot receives normalized joint setpoints, maps
// them into each joint's calibrated range and steps its twelve servos toward
// them one degree per tick.
//
// # Installation
//
//	go install github.com/quantumrobotics/hexapod/cmd/hexapod@latest
//	go install github.com/quantumrobotics/hexapod/cmd/rfcontrol@latest
//
// # Usage
//
// Find the servo bus and calibrate the joints:
//
//	hexapod setup
//
// Then run the robot, or try it without hardware:
//
//	hexapod run
//	hexapod run --sim
//
// Drive it from the keyboard:
//
//	rfcontrol run
//
// # Packages
//
//   - cmd/hexapod: robot CLI with run, manual, setup and sweep commands
//   - cmd/rfcontrol: keyboard controller CLI
//   - pkg/robot: joints, legs, servo driver and the robot routine
//   - pkg/remote: joystick math and the controller routine
//   - pkg/radio: link roles, wire packages, serial bridge and loopback
//   - pkg/routine: fixed-rate loop and TUI plumbing
//   - pkg/status: status light
//   - pkg/timer: millisecond deadline timer
package hexapod
