// Package http provides HTTP handlers and middleware for the room booking API.
//
// The router exposes the following endpoints:
//   - GET /rooms: the room catalog as `roomDTO` values (room_handler.go).
//   - POST /rooms, PUT /rooms/{id}: administrator room maintenance. The caller
//     presents the admin token in `X-Admin-Token` or as a bearer token.
//   - GET /rooms/{id}/availability?date=YYYY-MM-DD&duration=N: legal start slot
//     keys plus the day's slots with occupancy (`availabilityDTO`).
//   - GET /bookings?room_id=&person_id=&from=&to=: bookings as `bookingDTO`.
//   - POST /bookings: books a slot from the form payload `bookingRequest`. The
//     201 response carries the one-time `cancel_token`.
//   - DELETE /bookings/{id}?token=: cancels a booking with its cancel token.
//   - POST /sessions, GET /sessions/{id}, DELETE /sessions/{id}: interactive
//     selection sessions (`sessionDTO`).
//   - POST /sessions/{id}/events: feeds press, move, release, select_room or
//     clear to the session's drag selection.
//   - POST /sessions/{id}/submit: books the pending selection for {"name","email"}.
//   - GET /reports/week?week=YYYY-MM-DD: the Monday to Friday calendar as XLSX.
//
// Failures are JSON `errorResponse` bodies with a stable `error_code` and the
// message shown to the person booking.
package http
