// Package audio is the soundboard's playback engine.
//
// It streams decoded files to an external sink process (Player), mixes
// synthesized waveforms into one continuous stream (Mixer), and plays dialog
// file sequences (Sequencer). Manager ties the three together for the hotkey
// router, the control socket and the TUI.
package audio
