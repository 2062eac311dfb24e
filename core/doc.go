/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package core is the trigger/condition/action kernel.
//
// A script declares triggers: an event spec plus a tree of
// conditional actions.  When an event arrives for a trip, the Kernel
// finds the active triggers that match it, evaluates their
// conditions, flattens their action trees, decides when each action
// should run, and returns ResultOps that describe what should happen.
// Nothing here performs I/O or reads the clock.  The evaluation time
// is part of the ActionContext.
//
// Actions, events and conditions come from Modules gathered into a
// Registry.  Each action is a function from params and context to
// ResultOps.  Ops like UpdateTripValues are folded into the working
// evaluation context (see ResultForOps), so later actions in the same
// dispatch see the effects of earlier ones before anything is
// persisted.
//
// Applying the ops to durable state, and running ScheduledActions
// when their time comes, are up to the caller.
package core
