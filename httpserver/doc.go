/*
Package httpserver serves the driving-tests quiz API.

# Endpoints

  - POST /user: sign up. 201 with {name, second_name, scores}, 208 if the user exists.
  - POST /user/signin: sign in. 200 with the profile, 400 for an unknown user, 403 for a wrong password.
  - DELETE /user: remove the authenticated user. 204.
  - GET /test: a random quiz item {id, level, description, answers, image}. image is base64 or null. 404 if there are no items.
  - GET /check_answer?test_id=&answer_id=: anonymous grading {correct, description, scores}.
  - POST /check_test: authenticated grading with score crediting,
    {correct, awarded_score, total_score, description}.
  - GET /leaderboard?limit=: top users by score, when a leaderboard is configured.
  - GET /healthy

Liveness and draining are served on /livez, /readyz, /drain and /undrain.
pprof is mounted under /debug when enabled.

# Errors

Failures are mapped to a status by error kind. Clients only ever see a short
message; the underlying error is logged.
*/
package httpserver
