// Package rig implements the anatomical marker editor and the synthesis of
// a joint hierarchy from placed markers.
package rig

import "strings"

// MarkerName identifies one of the 13 fixed anatomical landmarks.
type MarkerName string

// The fixed marker set. The set and its hierarchy are not user-configurable.
const (
	MarkerChin          MarkerName = "chin"
	MarkerNeckBase      MarkerName = "neckBase"
	MarkerLeftShoulder  MarkerName = "leftShoulder"
	MarkerRightShoulder MarkerName = "rightShoulder"
	MarkerLeftElbow     MarkerName = "leftElbow"
	MarkerRightElbow    MarkerName = "rightElbow"
	MarkerLeftWrist     MarkerName = "leftWrist"
	MarkerRightWrist    MarkerName = "rightWrist"
	MarkerGroin         MarkerName = "groin"
	MarkerLeftKnee      MarkerName = "leftKnee"
	MarkerRightKnee     MarkerName = "rightKnee"
	MarkerLeftAnkle     MarkerName = "leftAnkle"
	MarkerRightAnkle    MarkerName = "rightAnkle"
)

// AllMarkers lists every marker in placement order. The order also fixes
// each marker's staging offset, so it is part of the editor's contract.
var AllMarkers = []MarkerName{
	MarkerChin,
	MarkerNeckBase,
	MarkerLeftShoulder,
	MarkerRightShoulder,
	MarkerLeftElbow,
	MarkerRightElbow,
	MarkerLeftWrist,
	MarkerRightWrist,
	MarkerGroin,
	MarkerLeftKnee,
	MarkerRightKnee,
	MarkerLeftAnkle,
	MarkerRightAnkle,
}

// hierarchy maps each marker to its children in the fixed anatomical tree
// rooted at the groin.
var hierarchy = map[MarkerName][]MarkerName{
	MarkerGroin:         {MarkerNeckBase, MarkerLeftKnee, MarkerRightKnee},
	MarkerNeckBase:      {MarkerChin, MarkerLeftShoulder, MarkerRightShoulder},
	MarkerLeftShoulder:  {MarkerLeftElbow},
	MarkerRightShoulder: {MarkerRightElbow},
	MarkerLeftElbow:     {MarkerLeftWrist},
	MarkerRightElbow:    {MarkerRightWrist},
	MarkerLeftKnee:      {MarkerLeftAnkle},
	MarkerRightKnee:     {MarkerRightAnkle},
}

// parentOf is derived from hierarchy; the groin has no entry.
var parentOf = func() map[MarkerName]MarkerName {
	m := make(map[MarkerName]MarkerName)
	for parent, children := range hierarchy {
		for _, c := range children {
			m[c] = parent
		}
	}
	return m
}()

// RootMarker is the hierarchy root.
const RootMarker = MarkerGroin

// Parent returns the marker's parent in the anatomical tree, or "" for the
// root.
func (n MarkerName) Parent() MarkerName {
	return parentOf[n]
}

// Children returns the marker's children in the anatomical tree.
func (n MarkerName) Children() []MarkerName {
	return hierarchy[n]
}

// Index returns the marker's position in AllMarkers, or -1 for unknown names.
func (n MarkerName) Index() int {
	for i, m := range AllMarkers {
		if m == n {
			return i
		}
	}
	return -1
}

// JointNamePrefix is the rig-compatible naming prefix shared between
// exported skeletons and accepted motion clips.
const JointNamePrefix = "mixamorig"

// JointName derives the joint name for this marker: the rig prefix followed
// by the capitalized marker name ("leftWrist" -> "mixamorigLeftWrist").
func (n MarkerName) JointName() string {
	s := string(n)
	if s == "" {
		return ""
	}
	return JointNamePrefix + strings.ToUpper(s[:1]) + s[1:]
}
