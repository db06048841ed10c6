// Package dbus sends desktop notifications over the org.freedesktop.Notifications
// D-Bus interface on the session bus.
package dbus
