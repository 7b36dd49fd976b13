// Package widgets holds the building blocks panels are made of. Every
// widget tracks a fixed set of attributes: Attrs lists them, Apply feeds
// it an update (reporting whether the update was for it) and View renders
// it. Widgets never subscribe on their own; the panel owning them does.
package widgets
